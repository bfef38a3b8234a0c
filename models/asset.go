package models

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetRef identifica um único ativo não fungível: o contrato de registro que
// o cunhou mais o seu token id.
type AssetRef struct {
	Registry common.Address `json:"registry"`
	TokenID  *big.Int       `json:"token_id"`
}

// NewAssetRef copia tokenID; a ref nunca compartilha estado com quem chamou.
func NewAssetRef(registry common.Address, tokenID *big.Int) AssetRef {
	return AssetRef{Registry: registry, TokenID: new(big.Int).Set(tokenID)}
}

// Key é a forma da ref usada como chave de map.
func (a AssetRef) Key() string {
	return fmt.Sprintf("%s:%s", a.Registry.Hex(), a.TokenID.String())
}

func (a AssetRef) String() string {
	return a.Key()
}
