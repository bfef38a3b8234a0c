package chain

import (
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/models"
)

// Subscribe retorna um canal que recebe, em ordem, todos os eventos confirmados.
// Um assinante cujo buffer enche é descartado e tem o canal fechado; um
// consumidor parado nunca segura as confirmações. Chame cancel para sair.
func (c *Local) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.Event, buffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (c *Local) publish(events []models.Event) {
	if len(events) == 0 {
		return
	}
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		for _, e := range events {
			select {
			case ch <- e:
				continue
			default:
			}
			c.log.Warn("descartando assinante de eventos lento", zap.Int("subscriber", id), zap.Uint64("height", e.Height))
			delete(c.subs, id)
			close(ch)
			break
		}
	}
}
