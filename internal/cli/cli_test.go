package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/zkfactor/internal/config"
	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/ledger"
	"github.com/R3E-Network/zkfactor/internal/records"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
	"github.com/R3E-Network/zkfactor/pkg/logger"
	"github.com/R3E-Network/zkfactor/pkg/testutil"
)

const programID = config.DefaultProgramID

var (
	ownerAddr  = testutil.Address('q')
	debtorAddr = testutil.Address('z')
	factorAddr = testutil.Address('p')
)

type cliHarness struct {
	wallet   *testutil.MockWallet
	mappings *testutil.MockMappingReader
	chain    *testutil.MockChain
	envFile  string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	return &cliHarness{
		wallet:   testutil.NewMockWallet(),
		mappings: testutil.NewMockMappingReader(),
		chain:    testutil.NewMockChain(4_200_000),
		envFile:  filepath.Join(t.TempDir(), "absent.env"),
	}
}

// run executes the CLI with args and returns stdout and the command error.
func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		NewApp: func(ctx context.Context, cfg config.Config, _ *logger.Logger) (*App, error) {
			cfg.Poll.Interval = 5 * time.Millisecond
			cfg.Poll.MaxAttempts = 20
			app, err := Assemble(ctx, cfg, nil, h.wallet, h.mappings)
			if err != nil {
				return nil, err
			}
			app.Chain = h.chain
			return app, nil
		},
	}
	cmd := NewRootCommandWith(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--env-file", h.envFile))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeResponse[T any](t *testing.T, raw string) (Response, T) {
	t.Helper()
	var envelope struct {
		Status string     `json:"status"`
		Data   T          `json:"data"`
		Error  *ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope), raw)
	return Response{Status: envelope.Status, Error: envelope.Error}, envelope.Data
}

func invoiceRecord(hash string, amount uint64) ledger.Record {
	return ledger.Record{
		ID:         testutil.GenerateID(),
		Program:    programID,
		RecordName: records.InvoiceRecord,
		Plaintext: fmt.Sprintf("{\n  owner: %s.private,\n  debtor: %s.private,\n  amount: %du64.private,\n  due_date: 4102444800u64.private,\n  invoice_hash: %s.private\n}",
			ownerAddr, debtorAddr, amount, hash),
	}
}

func creditsRecord(micro uint64) ledger.Record {
	return ledger.Record{
		ID:         testutil.GenerateID(),
		Program:    ledger.CreditsProgram,
		RecordName: records.CreditsRecord,
		Plaintext:  fmt.Sprintf("{\n  owner: %s.private,\n  microcredits: %du64.private\n}", ownerAddr, micro),
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "zkfactor", cmd.Use)

	for _, path := range [][]string{
		{"serve"},
		{"sync"},
		{"completion"},
		{"invoice", "create"},
		{"invoice", "factor"},
		{"invoice", "settle"},
		{"invoice", "list"},
		{"factor", "register"},
		{"factor", "deregister"},
		{"factor", "status"},
		{"tx", "status"},
		{"tx", "show"},
		{"tx", "history"},
		{"status"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)

	create, _, err := cmd.Find([]string{"invoice", "create"})
	require.NoError(t, err)
	for _, name := range []string{"debtor", "amount", "due", "number", "no-wait", "timeout"} {
		assert.NotNil(t, create.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, "tx", "history", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvoiceCreate(t *testing.T) {
	h := newCLIHarness(t)
	out, err := h.run(t, "invoice", "create",
		"--number", "INV-2026-001",
		"--debtor", debtorAddr,
		"--amount", "5",
		"--due", "2099-01-01",
		"--format", "json")
	require.NoError(t, err)

	resp, res := decodeResponse[TxResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, txlifecycle.StatusAccepted, res.Outcome.Status)
	assert.Equal(t, "Invoice created successfully!", res.Message)
	assert.Equal(t, "INV-2026-001", res.InvoiceNumber)
	assert.Equal(t, factoring.InvoiceHash("INV-2026-001", debtorAddr, 5_000_000), res.InvoiceHash)
	assert.Equal(t, "https://testnet.explorer.provable.com/transaction/at1tx1", res.ExplorerURL)

	sub := h.wallet.Submitted()
	require.Len(t, sub, 1)
	assert.Equal(t, factoring.FnMintInvoice, sub[0].Function)
	assert.Equal(t, "4070908800u64", sub[0].Inputs[2])
}

func TestInvoiceCreate_BadAmount(t *testing.T) {
	h := newCLIHarness(t)
	_, err := h.run(t, "invoice", "create", "--debtor", debtorAddr, "--amount", "-1", "--due", "2099-01-01")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, h.wallet.Submitted())
}

func TestInvoiceFactor_InsufficientFunds(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.SetRecords(programID, invoiceRecord("55field", 42_000_000))
	h.wallet.SetRecords(ledger.CreditsProgram, creditsRecord(1_000_000))

	out, err := h.run(t, "invoice", "factor", "55field", "--creditor", factorAddr, "--rate", "9000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [insufficient_funds]: Insufficient balance for advance: need 37.800000 credits")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported)
}

func TestFactorRegister_Rejected(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.ScriptStatus("at1tx1",
		ledger.StatusResponse{Status: ledger.TxPending},
		ledger.StatusResponse{Status: ledger.TxRejected, Error: "factor already registered"},
	)

	out, err := h.run(t, "factor", "register", "--min-rate", "8000", "--max-rate", "9500")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Already registered as factor")
	assert.Contains(t, out, "transaction: at1tx1")

	sub := h.wallet.Submitted()
	require.Len(t, sub, 1)
	assert.Equal(t, []string{"8000u16", "9500u16"}, sub[0].Inputs)
}

func TestFactorDeregister_NoWait(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.DefaultStatus = ledger.TxPending

	out, err := h.run(t, "factor", "deregister", "--no-wait", "--format", "json")
	require.NoError(t, err)
	_, res := decodeResponse[TxResult](t, out)
	assert.Equal(t, txlifecycle.StatusPending, res.Outcome.Status)
	assert.Equal(t, "Broadcasting…", res.Message)
}

func TestFactorStatus(t *testing.T) {
	h := newCLIHarness(t)
	h.mappings.Put(programID, factoring.ActiveFactorsMapping, factorAddr,
		"{ is_active: true, min_advance_rate: 8000u16, max_advance_rate: 9500u16 }")

	out, err := h.run(t, "factor", "status", factorAddr)
	require.NoError(t, err)
	assert.Contains(t, out, "is an active factor")
	assert.Contains(t, out, "80.00% - 95.00%")

	out, err = h.run(t, "factor", "status", ownerAddr)
	require.NoError(t, err)
	assert.Contains(t, out, "is not registered")

	_, err = h.run(t, "factor", "status", "bob")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvoiceList(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.SetRecords(programID, invoiceRecord("11field", 3_000_000), invoiceRecord("22field", 9_000_000))

	out, err := h.run(t, "invoice", "list", "--sort", "amount", "--desc")
	require.NoError(t, err)
	assert.Contains(t, out, "HASH")
	assert.Less(t, bytes.Index([]byte(out), []byte("22field")), bytes.Index([]byte(out), []byte("11field")))
	assert.Contains(t, out, "9.000000")

	_, err = h.run(t, "invoice", "list", "--sort", "debtor")
	require.Error(t, err)
}

func TestTxStatus(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.ScriptStatus("at1abc", ledger.StatusResponse{Status: "Finalized", TransactionID: "at1final"})

	out, err := h.run(t, "tx", "status", "at1abc", "--format", "json")
	require.NoError(t, err)
	_, res := decodeResponse[TxStatusResult](t, out)
	assert.Equal(t, "finalized", res.Status)
	assert.Equal(t, "at1final", res.ConfirmedID)
}

func TestTxHistory_Empty(t *testing.T) {
	h := newCLIHarness(t)
	out, err := h.run(t, "tx", "history", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, out)
}

func TestTxHistory_Wallet(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.SetHistory(programID, ledger.HistoryEntry{
		TransactionID: "at1old",
		Function:      factoring.FnMintInvoice,
		Status:        "accepted",
		Timestamp:     1_790_000_000,
	})

	out, err := h.run(t, "tx", "history", "--wallet", "--format", "json")
	require.NoError(t, err)
	_, entries := decodeResponse[[]ledger.HistoryEntry](t, out)
	require.Len(t, entries, 1)
	assert.Equal(t, "at1old", entries[0].TransactionID)

	out, err = h.run(t, "tx", "history", "--wallet")
	require.NoError(t, err)
	assert.Contains(t, out, "mint_invoice")
	assert.Contains(t, out, "2026-09-21")
}

func TestTxShow(t *testing.T) {
	h := newCLIHarness(t)
	h.chain.Transactions.Set("at1abc", ledger.TransactionInfo{
		ID:   "at1abc",
		Type: "execute",
		Transitions: []ledger.Transition{
			{ID: "au1one", Program: programID, Function: factoring.FnSettleInvoice},
		},
	})

	out, err := h.run(t, "tx", "show", "at1abc")
	require.NoError(t, err)
	assert.Contains(t, out, "at1abc (execute)")
	assert.Contains(t, out, programID+"/settle_invoice")
	assert.Contains(t, out, "https://testnet.explorer.provable.com/transaction/at1abc")

	out, err = h.run(t, "tx", "show", "at1missing", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp, _ := decodeResponse[json.RawMessage](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, factoring.CodeNotFound, resp.Error.Code)
}

func TestStatus(t *testing.T) {
	h := newCLIHarness(t)
	out, err := h.run(t, "status", "--format", "json")
	require.NoError(t, err)
	_, res := decodeResponse[StatusResult](t, out)
	assert.Equal(t, config.NetworkTestnet, res.Network)
	assert.Equal(t, programID, res.ProgramID)
	assert.Equal(t, uint64(4_200_000), res.Height)
	assert.Equal(t, []string{programID, ledger.CreditsProgram}, res.Programs)

	h.chain.Err = fmt.Errorf("explorer down")
	out, err = h.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "height:    unavailable (explorer down)")
}

func TestSync(t *testing.T) {
	h := newCLIHarness(t)
	h.wallet.SetRecords(ledger.CreditsProgram, creditsRecord(1), creditsRecord(2))

	out, err := h.run(t, "sync", "--format", "json")
	require.NoError(t, err)
	_, counts := decodeResponse[map[string]int](t, out)
	assert.Equal(t, map[string]int{programID: 0, ledger.CreditsProgram: 2}, counts)
}

func TestCompletion(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "zkfactor")

	cmd = NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, cmd.Execute())
}

func TestParseDueDate(t *testing.T) {
	d, err := parseDueDate("2026-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDueDate("2026-12-31T08:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1798696800), d.Unix())

	_, err = parseDueDate("31/12/2026")
	assert.Error(t, err)
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "aleo1zzzz…zzzz", shortAddress(debtorAddr))
	assert.Equal(t, "aleo1", shortAddress("aleo1"))
}
