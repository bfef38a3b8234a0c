package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ferreirogomes/fnft/contracts"
)

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrInvalidParams   = errors.New("invalid params")
	ErrBadSignature    = errors.New("bad signature")
	ErrNonceMismatch   = errors.New("nonce mismatch")
)

// codes são identificadores estáveis para erros que atravessam a fronteira HTTP.
var codes = []struct {
	code string
	err  error
}{
	{"unknown_contract", ErrUnknownContract},
	{"unknown_method", ErrUnknownMethod},
	{"invalid_params", ErrInvalidParams},
	{"bad_signature", ErrBadSignature},
	{"nonce_mismatch", ErrNonceMismatch},
	{"invalid_config", contracts.ErrInvalidConfig},
	{"invalid_amount", contracts.ErrInvalidAmount},
	{"zero_address", contracts.ErrZeroAddress},
	{"not_owner", contracts.ErrNotOwner},
	{"token_not_found", contracts.ErrTokenNotFound},
	{"not_approved", contracts.ErrNotApproved},
	{"not_authorized", contracts.ErrNotAuthorized},
	{"supply_cap_exceeded", contracts.ErrSupplyCapExceeded},
	{"already_in_custody", contracts.ErrAlreadyInCustody},
	{"token_exists", contracts.ErrTokenExists},
	{"insufficient_balance", contracts.ErrInsufficientBalance},
}

// ErrorCode retorna o código do primeiro erro conhecido na cadeia de err, ou "internal".
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ErrorFromCode reconstrói um erro que embrulha o sentinela nomeado por code.
// msg costuma ser o err.Error() remoto, que já começa com o texto do sentinela.
func ErrorFromCode(code, msg string) error {
	for _, c := range codes {
		if c.code == code {
			rest := strings.TrimPrefix(msg, c.err.Error())
			rest = strings.TrimPrefix(rest, ": ")
			if rest == "" {
				return c.err
			}
			return fmt.Errorf("%w: %s", c.err, rest)
		}
	}
	return errors.New(msg)
}
