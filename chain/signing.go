package chain

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ferreirogomes/fnft/models"
)

// SigningHash é o digest que o remetente assina: keccak256(chainID, from, nonce, method, params).
// Os params entram no hash em forma compacta; recodificar o envelope não
// invalida a assinatura.
func SigningHash(chainID uint64, tx models.Transaction) common.Hash {
	var id, nonce [8]byte
	binary.BigEndian.PutUint64(id[:], chainID)
	binary.BigEndian.PutUint64(nonce[:], tx.Nonce)
	return crypto.Keccak256Hash(id[:], tx.From.Bytes(), nonce[:], []byte(tx.Method), canonicalParams(tx.Params))
}

func canonicalParams(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// TxHash identifica uma transação assinada.
func TxHash(chainID uint64, tx models.Transaction) common.Hash {
	h := SigningHash(chainID, tx)
	return crypto.Keccak256Hash(h.Bytes(), tx.Signature)
}

// SignTx preenche From e Signature usando key.
func SignTx(chainID uint64, tx models.Transaction, key *ecdsa.PrivateKey) (models.Transaction, error) {
	tx.From = crypto.PubkeyToAddress(key.PublicKey)
	sig, err := crypto.Sign(SigningHash(chainID, tx).Bytes(), key)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("sign %s: %w", tx.Method, err)
	}
	tx.Signature = sig
	return tx, nil
}

// Sender recupera o endereço que assinou tx e confere com tx.From.
func Sender(chainID uint64, tx models.Transaction) (common.Address, error) {
	if len(tx.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: want %d bytes, got %d", ErrBadSignature, crypto.SignatureLength, len(tx.Signature))
	}
	pub, err := crypto.SigToPub(SigningHash(chainID, tx).Bytes(), tx.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if signer != tx.From {
		return common.Address{}, fmt.Errorf("%w: signed by %s, from %s", ErrBadSignature, signer.Hex(), tx.From.Hex())
	}
	return signer, nil
}
