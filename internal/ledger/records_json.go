package ledger

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeRecords decodes a wallet record listing. Wallet adapters disagree on
// key names (recordName vs type, program_id vs programId, id vs commitment),
// so the listing is read field by field instead of unmarshalled strictly.
func DecodeRecords(raw []byte) ([]Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("decode records: invalid JSON")
	}
	list := gjson.ParseBytes(raw)
	if list.IsObject() && list.Get("records").Exists() {
		list = list.Get("records")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("decode records: expected array, got %s", list.Type)
	}

	out := make([]Record, 0, len(list.Array()))
	for _, item := range list.Array() {
		rec := Record{
			ID:         first(item, "id"),
			Owner:      first(item, "owner"),
			Program:    first(item, "program_id", "programId", "program"),
			RecordName: first(item, "recordName", "record_name", "type"),
			Plaintext:  first(item, "plaintext", "recordPlaintext"),
			Spent:      item.Get("spent").Bool(),
			Commitment: first(item, "commitment"),
		}
		if data := item.Get("data"); data.IsObject() {
			rec.Fields = make(map[string]string)
			data.ForEach(func(k, v gjson.Result) bool {
				rec.Fields[k.String()] = v.String()
				return true
			})
		}
		out = append(out, rec)
	}
	return out, nil
}

func first(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
