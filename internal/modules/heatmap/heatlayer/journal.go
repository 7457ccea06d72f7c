package heatlayer

import "sync"

type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
)

// Op is one recorded mount or unmount. Layer is set for adds; removes carry
// only the layer id.
type Op struct {
	Seq     uint64 `json:"seq"`
	Kind    OpKind `json:"kind"`
	LayerID string `json:"layer_id"`
	Layer   *Layer `json:"layer,omitempty"`
}

// Journal is a Map that records operations so a remote renderer can replay
// them. It keeps at most limit operations.
type Journal struct {
	mu    sync.Mutex
	seq   uint64
	limit int
	ops   []Op
	live  map[string]*Layer
	order []string
}

const DefaultJournalLimit = 512

func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	return &Journal{limit: limit, live: make(map[string]*Layer)}
}

func (j *Journal) AddLayer(l *Layer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.live[l.ID] = l
	j.order = append(j.order, l.ID)
	j.record(Op{Kind: OpAdd, LayerID: l.ID, Layer: l})
}

func (j *Journal) RemoveLayer(l *Layer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.live[l.ID]; !ok {
		return
	}
	delete(j.live, l.ID)
	for i, id := range j.order {
		if id == l.ID {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
	j.record(Op{Kind: OpRemove, LayerID: l.ID})
}

func (j *Journal) record(op Op) {
	j.seq++
	op.Seq = j.seq
	j.ops = append(j.ops, op)
	if len(j.ops) > j.limit {
		j.ops = append([]Op(nil), j.ops[len(j.ops)-j.limit:]...)
	}
}

// Seq returns the sequence number of the latest operation.
func (j *Journal) Seq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Since returns the operations after seq. reset is true when operations after
// seq were trimmed, in which case the caller should rebuild from Live.
func (j *Journal) Since(seq uint64) (ops []Op, reset bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if seq > j.seq {
		return nil, true
	}
	if seq == j.seq {
		return []Op{}, false
	}
	if len(j.ops) == 0 || j.ops[0].Seq > seq+1 {
		return nil, true
	}
	start := int(seq + 1 - j.ops[0].Seq)
	out := make([]Op, len(j.ops)-start)
	copy(out, j.ops[start:])
	return out, false
}

// Live returns the mounted layers in mount order.
func (j *Journal) Live() []*Layer {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*Layer, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.live[id])
	}
	return out
}
