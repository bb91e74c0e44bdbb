package dnswire

import "fmt"

// Query is an incoming DNS request: a transaction id and flags plus
// exactly one question (§3 Data Model). It is immutable after receipt
// except for the dispatcher's internal id rewrite on the upstream leg.
type Query struct {
	ID       uint16
	Flags    uint16
	Question Question
	QDCount  uint16
	ANCount  uint16
	NSCount  uint16
	ARCount  uint16
}

// ParseQuery decodes a raw client datagram into a Query. It does not
// enforce the "supported" shape (single A/IN question, standard flags);
// that legality check belongs to the pipeline (§4.G.2).
func ParseQuery(msg []byte) (Query, error) {
	c := NewCursor(msg)
	h, err := ParseHeader(c)
	if err != nil {
		return Query{}, err
	}
	if h.QDCount < 1 {
		return Query{}, fmt.Errorf("%w: query carries no question", ErrWire)
	}
	q, err := ParseQuestion(c)
	if err != nil {
		return Query{}, err
	}
	return Query{
		ID:       h.ID,
		Flags:    h.Flags,
		Question: q,
		QDCount:  h.QDCount,
		ANCount:  h.ANCount,
		NSCount:  h.NSCount,
		ARCount:  h.ARCount,
	}, nil
}

// Marshal re-serializes the query as a standard single-question request
// under the given transaction id. The dispatcher uses this to rewrite
// the id before forwarding upstream (§4.F).
func (q Query) Marshal(id uint16) ([]byte, error) {
	qb, err := q.Question.Marshal()
	if err != nil {
		return nil, err
	}
	h := Header{ID: id, Flags: q.Flags, QDCount: 1}
	return append(h.Marshal(), qb...), nil
}

// IsSupported reports whether the query matches the pipeline's
// "supported" shape: flags exactly 0x0100 (RD set) or 0x0120 (RD and
// AD set), exactly one question, type A, class IN
// (§4.G.2 LegalityCheck).
func (q Query) IsSupported() bool {
	if q.Flags != FlagRD && q.Flags != 0x0120 {
		return false
	}
	if q.QDCount != 1 {
		return false
	}
	if q.Question.Type != TypeA {
		return false
	}
	if q.Question.Class != ClassIN {
		return false
	}
	return true
}
