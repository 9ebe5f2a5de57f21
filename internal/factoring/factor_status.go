package factoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/zkfactor/internal/cache"
	"github.com/R3E-Network/zkfactor/internal/codec"
	"github.com/R3E-Network/zkfactor/internal/ledger"
)

// FactorStatus is an address's entry in the active_factors mapping.
type FactorStatus struct {
	Address        string `json:"address"`
	Registered     bool   `json:"registered"`
	IsActive       bool   `json:"is_active"`
	MinAdvanceRate uint16 `json:"min_advance_rate"`
	MaxAdvanceRate uint16 `json:"max_advance_rate"`
}

// FactorStatus looks up address in the active_factors mapping. An address
// without an entry is reported as not registered, not as an error.
func (s *Service) FactorStatus(ctx context.Context, address string) (FactorStatus, error) {
	addr, err := codec.EncodeAddress(address)
	if err != nil {
		return FactorStatus{}, err
	}
	if s.mappings == nil {
		return FactorStatus{}, errors.New("no mapping reader configured")
	}

	key := cache.FactorKey(addr)
	store := s.records.Store()
	if raw, ok, err := store.Get(ctx, key); err == nil && ok {
		var st FactorStatus
		if json.Unmarshal(raw, &st) == nil {
			return st, nil
		}
	}

	value, err := s.mappings.Mapping(ctx, s.cfg.ProgramID, ActiveFactorsMapping, addr)
	var st FactorStatus
	switch {
	case errors.Is(err, ledger.ErrMappingNotFound):
		st = FactorStatus{Address: addr}
	case err != nil:
		return FactorStatus{}, fmt.Errorf("read %s[%s]: %w", ActiveFactorsMapping, addr, err)
	default:
		st, err = ParseFactorStatus(value)
		if err != nil {
			return FactorStatus{}, err
		}
		st.Address = addr
	}

	if raw, err := json.Marshal(st); err == nil {
		if err := store.Set(ctx, key, raw, cache.DefaultTTL); err != nil {
			s.log.WithError(err).Warn("cache factor status")
		} else {
			s.mu.Lock()
			s.factorKeys[key] = struct{}{}
			s.mu.Unlock()
		}
	}
	return st, nil
}

// ParseFactorStatus decodes a mapping value given either as Aleo struct
// plaintext ("{ is_active: true, min_advance_rate: 7000u16, ... }") or as a
// JSON object.
func ParseFactorStatus(value string) (FactorStatus, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return FactorStatus{}, nil
	}

	var isActive, minRate, maxRate string
	if gjson.Valid(value) && gjson.Parse(value).IsObject() {
		obj := gjson.Parse(value)
		isActive = obj.Get("is_active").String()
		minRate = obj.Get("min_advance_rate").String()
		maxRate = obj.Get("max_advance_rate").String()
	} else {
		fields := codec.ParsePlaintext(value)
		isActive = fields["is_active"]
		minRate = fields["min_advance_rate"]
		maxRate = fields["max_advance_rate"]
	}

	st := FactorStatus{Registered: true}
	if isActive != "" {
		b, err := codec.DecodeBool(isActive)
		if err != nil {
			return FactorStatus{}, fmt.Errorf("is_active: %w", err)
		}
		st.IsActive = b
	}
	var err error
	if st.MinAdvanceRate, err = parseRate(minRate); err != nil {
		return FactorStatus{}, fmt.Errorf("min_advance_rate: %w", err)
	}
	if st.MaxAdvanceRate, err = parseRate(maxRate); err != nil {
		return FactorStatus{}, fmt.Errorf("max_advance_rate: %w", err)
	}
	return st, nil
}

// parseRate accepts "7000u16" or a bare "7000".
func parseRate(lit string) (uint16, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return 0, nil
	}
	if !strings.HasSuffix(codec.StripVisibility(lit), "u16") {
		lit = codec.StripVisibility(lit) + "u16"
	}
	return codec.DecodeU16(lit)
}
