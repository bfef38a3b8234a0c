package contracts

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ferreirogomes/fnft/models"
)

// Journal acumula os eventos e os passos de desfazer de uma chamada em curso.
// O host confirma em caso de sucesso e reverte em caso de falha.
type Journal struct {
	events []models.Event
	undo   []func()
}

func NewJournal() *Journal {
	return &Journal{}
}

// Emit registra um evento. Id, altura e hash da tx são carimbados na confirmação.
func (j *Journal) Emit(contract common.Address, name string, args map[string]string) {
	j.events = append(j.events, models.Event{
		Index:    len(j.events),
		Contract: contract,
		Name:     name,
		Args:     args,
	})
}

// OnRevert registra fn para rodar se a chamada for revertida.
func (j *Journal) OnRevert(fn func()) {
	j.undo = append(j.undo, fn)
}

// Revert executa os passos de desfazer do mais novo ao mais antigo e descarta os eventos pendentes.
func (j *Journal) Revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.events = nil
}

// Events retorna os eventos registrados até agora.
func (j *Journal) Events() []models.Event {
	return j.events
}
