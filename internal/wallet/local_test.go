package wallet

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
)

func writeKeyfile(t *testing.T, kp *solkey.Keypair) string {
	t.Helper()
	raw, err := json.Marshal(kp.Bytes())
	if err != nil {
		t.Fatalf("marshal keyfile: %v", err)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write keyfile: %v", err)
	}
	return path
}

func TestLoadLocalSigner(t *testing.T) {
	kp, err := solkey.NewKeypair()
	if err != nil {
		t.Fatalf("new keypair: %v", err)
	}

	signer, err := LoadLocalSigner(writeKeyfile(t, kp))
	if err != nil {
		t.Fatalf("load signer: %v", err)
	}
	if signer.Address() != kp.Pubkey() {
		t.Errorf("expected address %s, got %s", kp.Pubkey(), signer.Address())
	}
	if !signer.Connected() {
		t.Error("loaded signer must report connected")
	}
}

func TestLoadLocalSigner_BadFile(t *testing.T) {
	if _, err := LoadLocalSigner(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing keyfile")
	}

	path := filepath.Join(t.TempDir(), "short.json")
	os.WriteFile(path, []byte("[1,2,3]"), 0o600)
	if _, err := LoadLocalSigner(path); err == nil {
		t.Error("expected error for truncated keyfile")
	}
}

func TestSignTransaction(t *testing.T) {
	kp, err := solkey.NewKeypair()
	if err != nil {
		t.Fatalf("new keypair: %v", err)
	}
	signer := NewLocalSigner(kp)

	dest, _ := solkey.NewKeypair()
	msg, err := txn.CompileMessage(kp.Pubkey(), "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oLubtRqqLEnWz", []txn.Instruction{
		txn.NewTransfer(kp.Pubkey(), dest.Pubkey(), 1),
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	tx := txn.NewTransaction(msg)
	if err := signer.SignTransaction(context.Background(), tx); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !tx.FullySigned() {
		t.Error("expected fully signed transaction")
	}
}

func TestSignAllTransactions(t *testing.T) {
	kp, err := solkey.NewKeypair()
	if err != nil {
		t.Fatalf("new keypair: %v", err)
	}
	signer := NewLocalSigner(kp)

	dest, _ := solkey.NewKeypair()
	var txs []*txn.Transaction
	for i := 0; i < 3; i++ {
		msg, err := txn.CompileMessage(kp.Pubkey(), "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oLubtRqqLEnWz", []txn.Instruction{
			txn.NewTransfer(kp.Pubkey(), dest.Pubkey(), uint64(i+1)),
		})
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		txs = append(txs, txn.NewTransaction(msg))
	}

	if err := signer.SignAllTransactions(context.Background(), txs); err != nil {
		t.Fatalf("sign all: %v", err)
	}
	for i, tx := range txs {
		if !tx.FullySigned() {
			t.Errorf("transaction %d not fully signed", i)
		}
	}
}
