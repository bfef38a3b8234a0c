package contracts

import "errors"

// Rejeições. Uma chamada de contrato que retorna um destes não alterou nada.
var (
	ErrInvalidConfig       = errors.New("invalid vault configuration")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrZeroAddress         = errors.New("zero address")
	ErrNotOwner            = errors.New("caller is not the asset owner")
	ErrNotApproved         = errors.New("vault is not approved for the asset")
	ErrNotAuthorized       = errors.New("caller is not authorized")
	ErrSupplyCapExceeded   = errors.New("share supply cap exceeded")
	ErrAlreadyInCustody    = errors.New("asset already in custody")
	ErrTokenNotFound       = errors.New("token does not exist")
	ErrTokenExists         = errors.New("token already minted")
	ErrInsufficientBalance = errors.New("insufficient share balance")
)
