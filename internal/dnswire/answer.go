package dnswire

import (
	"encoding/binary"
	"fmt"

	"github.com/jroosing/dnsforward/internal/helpers"
)

// AnswerKind tags the Answer sum type (§3 Data Model, §9 design notes).
// A tagged variant replaces the upstream interface-with-downcast pattern
// the original implementation used: IP selection and cache insertion
// switch on Kind instead of type-asserting a polymorphic answer.
type AnswerKind int

const (
	KindIPv4 AnswerKind = iota
	KindSOA
	KindFailure
	KindNoSuchName
)

func (k AnswerKind) String() string {
	switch k {
	case KindIPv4:
		return "ipv4"
	case KindSOA:
		return "soa"
	case KindFailure:
		return "failure"
	case KindNoSuchName:
		return "nosuchname"
	default:
		return "unknown"
	}
}

// IPv4Answer is one A-record resource record in an IPv4 answer.
type IPv4Answer struct {
	Name string
	TTL  uint32
	Addr [4]byte
}

// SOAAnswer is the single authority record of an SOA answer.
type SOAAnswer struct {
	Name      string
	TTL       uint32
	PrimaryNS string
	Mailbox   string
	Serial    uint32
	Refresh   uint32
	Retry     uint32
	Expire    uint32
	Minimum   uint32
}

// Default SOA body used by the filter stage and by cache re-emission
// (§4.B "Synthesized default SOA").
const (
	DefaultSOAPrimaryNS = "dns17.hichina.com"
	DefaultSOAMailbox   = "hostmaster.hichina.com"
	DefaultSOASerial    = 1
	DefaultSOARefresh   = 3600
	DefaultSOARetry     = 1200
	DefaultSOAExpire    = 3600
	DefaultSOAMinimum   = 600
	DefaultTTL          = 600
)

// NewDefaultSOA builds the synthesized default SOA body for name with
// the given ttl (600, or the record's remaining ttl on cache re-emit).
func NewDefaultSOA(name string, ttl uint32) SOAAnswer {
	return SOAAnswer{
		Name:      name,
		TTL:       ttl,
		PrimaryNS: DefaultSOAPrimaryNS,
		Mailbox:   DefaultSOAMailbox,
		Serial:    DefaultSOASerial,
		Refresh:   DefaultSOARefresh,
		Retry:     DefaultSOARetry,
		Expire:    DefaultSOAExpire,
		Minimum:   DefaultSOAMinimum,
	}
}

// Answer is a tagged variant over {IPv4, SOA, Failure, NoSuchName}
// carrying the id and question to echo back to the client (§3).
type Answer struct {
	Kind     AnswerKind
	ID       uint16
	Flags    uint16
	Question Question
	IPv4     []IPv4Answer
	SOA      *SOAAnswer
}

// NewFailureAnswer synthesizes a server-failure answer (flags=0x8182).
func NewFailureAnswer(id uint16, q Question) Answer {
	return Answer{Kind: KindFailure, ID: id, Flags: FlagsServerFailure, Question: q}
}

// NewNoSuchNameAnswer synthesizes an NXDOMAIN answer (flags=0x8183).
func NewNoSuchNameAnswer(id uint16, q Question) Answer {
	return Answer{Kind: KindNoSuchName, ID: id, Flags: FlagsNoSuchName, Question: q}
}

// NewSOAAnswer wraps soa as a positive (flags=0x8180) SOA answer.
func NewSOAAnswer(id uint16, q Question, soa SOAAnswer) Answer {
	return Answer{Kind: KindSOA, ID: id, Flags: FlagsPositive, Question: q, SOA: &soa}
}

// NewIPv4Answer wraps records as a positive IPv4 answer.
func NewIPv4Answer(id uint16, q Question, records []IPv4Answer) Answer {
	return Answer{Kind: KindIPv4, ID: id, Flags: FlagsPositive, Question: q, IPv4: records}
}

// Cacheable reports whether this answer kind may be stored in the cache
// (§4.D "Only IPv4 and SOA answers are cacheable").
func (a Answer) Cacheable() bool {
	return a.Kind == KindIPv4 || a.Kind == KindSOA
}

// WithID returns a copy of a with the id replaced. The dispatcher uses
// this to restore the client's original id after an upstream round trip
// that used an internally-assigned id.
func (a Answer) WithID(id uint16) Answer {
	a.ID = id
	return a
}

// ParseAnswer decodes an upstream reply into a tagged Answer, applying
// the answer parse policy of §4.B:
//
//  1. If an=0 and ns=0, flags are normalized to 0x8182.
//  2. flags=0x8182 decodes as Failure; flags=0x8183 decodes as
//     NoSuchName.
//  3. Else if an>0, classify as IPv4: collect all A records, dropping
//     CNAME intermediates but preserving the arrival order of A records.
//  4. Else if ns>0, classify as SOA using the first authority record.
func ParseAnswer(msg []byte) (Answer, error) {
	c := NewCursor(msg)
	h, err := ParseHeader(c)
	if err != nil {
		return Answer{}, err
	}

	var q Question
	if h.QDCount > 0 {
		q, err = ParseQuestion(c)
		if err != nil {
			return Answer{}, err
		}
	}

	flags := h.Flags
	if h.ANCount == 0 && h.NSCount == 0 {
		flags = FlagsServerFailure
	}

	switch flags {
	case FlagsServerFailure:
		return Answer{Kind: KindFailure, ID: h.ID, Flags: FlagsServerFailure, Question: q}, nil
	case FlagsNoSuchName:
		return Answer{Kind: KindNoSuchName, ID: h.ID, Flags: FlagsNoSuchName, Question: q}, nil
	}

	if h.ANCount > 0 {
		records := make([]IPv4Answer, 0, h.ANCount)
		for range h.ANCount {
			rec, isA, rrErr := parseAnswerRecord(c)
			if rrErr != nil {
				return Answer{}, rrErr
			}
			if isA {
				records = append(records, rec)
			}
		}
		return Answer{Kind: KindIPv4, ID: h.ID, Flags: h.Flags, Question: q, IPv4: records}, nil
	}

	if h.NSCount > 0 {
		soa, soaErr := parseSOARecord(c)
		if soaErr != nil {
			return Answer{}, soaErr
		}
		return Answer{Kind: KindSOA, ID: h.ID, Flags: h.Flags, Question: q, SOA: &soa}, nil
	}

	return Answer{}, fmt.Errorf("%w: answer has neither records nor a recognized failure flag", ErrWire)
}

// parseRRHeader reads name, type, class, ttl and rdlength, returning the
// byte offset where rdata begins so the caller can reposition the
// cursor to exactly rdataStart+rdlen once it has interpreted the rdata
// (rdata may itself contain compressed names whose decoding does not
// consume rdlen bytes from the cursor).
func parseRRHeader(c *Cursor) (name string, rtype, class uint16, ttl uint32, rdataStart, rdlen int, err error) {
	name, err = DecodeName(c)
	if err != nil {
		return
	}
	if c.Remaining() < 10 {
		err = fmt.Errorf("%w: unexpected EOF in resource record header", ErrWire)
		return
	}
	b := c.TakeSlice(10)
	rtype = binary.BigEndian.Uint16(b[0:2])
	class = binary.BigEndian.Uint16(b[2:4])
	ttl = binary.BigEndian.Uint32(b[4:8])
	rdlen = int(binary.BigEndian.Uint16(b[8:10]))
	rdataStart = c.Pos()
	if c.Remaining() < rdlen {
		err = fmt.Errorf("%w: unexpected EOF in rdata", ErrWire)
	}
	return
}

// parseAnswerRecord parses one answer-section record. A records are
// returned with isA=true; CNAME records are consumed (for length
// purposes) but dropped (isA=false, err=nil); any other type fails fast
// per §4.B "Unsupported rdata types fail fast".
func parseAnswerRecord(c *Cursor) (IPv4Answer, bool, error) {
	name, rtype, _, ttl, rdataStart, rdlen, err := parseRRHeader(c)
	if err != nil {
		return IPv4Answer{}, false, err
	}
	defer c.Seek(rdataStart + rdlen)

	switch rtype {
	case TypeA:
		if rdlen != 4 {
			return IPv4Answer{}, false, fmt.Errorf("%w: A record rdlength %d != 4", ErrWire, rdlen)
		}
		return IPv4Answer{Name: name, Addr: c.TakeArray4(), TTL: ttl}, true, nil
	case TypeCNAME:
		return IPv4Answer{}, false, nil
	default:
		return IPv4Answer{}, false, fmt.Errorf("%w: type %d", ErrUnsupportedRData, rtype)
	}
}

// parseSOARecord parses the first authority record as an SOA.
func parseSOARecord(c *Cursor) (SOAAnswer, error) {
	name, rtype, _, ttl, rdataStart, rdlen, err := parseRRHeader(c)
	if err != nil {
		return SOAAnswer{}, err
	}
	defer c.Seek(rdataStart + rdlen)

	if rtype != TypeSOA {
		return SOAAnswer{}, fmt.Errorf("%w: type %d in authority section", ErrUnsupportedRData, rtype)
	}

	primaryNS, err := DecodeName(c)
	if err != nil {
		return SOAAnswer{}, err
	}
	mailbox, err := DecodeName(c)
	if err != nil {
		return SOAAnswer{}, err
	}
	if c.Remaining() < 20 {
		return SOAAnswer{}, fmt.Errorf("%w: unexpected EOF in SOA rdata", ErrWire)
	}
	b := c.TakeSlice(20)
	return SOAAnswer{
		Name:      name,
		TTL:       ttl,
		PrimaryNS: primaryNS,
		Mailbox:   mailbox,
		Serial:    binary.BigEndian.Uint32(b[0:4]),
		Refresh:   binary.BigEndian.Uint32(b[4:8]),
		Retry:     binary.BigEndian.Uint32(b[8:12]),
		Expire:    binary.BigEndian.Uint32(b[12:16]),
		Minimum:   binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// Marshal emits the answer as a DNS reply. Names are always written in
// full (no compression on emit); additional-count is always 0 (§4.B,
// §6).
func (a Answer) Marshal() ([]byte, error) {
	qb, err := a.Question.Marshal()
	if err != nil {
		return nil, err
	}

	h := Header{ID: a.ID, Flags: a.Flags, QDCount: 1}
	var body []byte

	switch a.Kind {
	case KindIPv4:
		h.ANCount = helpers.ClampIntToUint16(len(a.IPv4))
		for _, rec := range a.IPv4 {
			rb, rErr := marshalARecord(rec)
			if rErr != nil {
				return nil, rErr
			}
			body = append(body, rb...)
		}
	case KindSOA:
		if a.SOA == nil {
			return nil, fmt.Errorf("%w: SOA answer missing body", ErrWire)
		}
		h.NSCount = 1
		rb, rErr := marshalSOARecord(*a.SOA)
		if rErr != nil {
			return nil, rErr
		}
		body = append(body, rb...)
	case KindFailure, KindNoSuchName:
		// No records.
	}

	out := make([]byte, 0, HeaderSize+len(qb)+len(body))
	out = append(out, h.Marshal()...)
	out = append(out, qb...)
	out = append(out, body...)
	return out, nil
}

func marshalARecord(rec IPv4Answer) ([]byte, error) {
	name, err := EncodeName(rec.Name)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(name)+10+4)
	b = append(b, name...)
	tail := make([]byte, 10)
	binary.BigEndian.PutUint16(tail[0:2], TypeA)
	binary.BigEndian.PutUint16(tail[2:4], ClassIN)
	binary.BigEndian.PutUint32(tail[4:8], rec.TTL)
	binary.BigEndian.PutUint16(tail[8:10], 4)
	b = append(b, tail...)
	b = append(b, rec.Addr[:]...)
	return b, nil
}

func marshalSOARecord(s SOAAnswer) ([]byte, error) {
	name, err := EncodeName(s.Name)
	if err != nil {
		return nil, err
	}
	nsName, err := EncodeName(s.PrimaryNS)
	if err != nil {
		return nil, err
	}
	mbName, err := EncodeName(s.Mailbox)
	if err != nil {
		return nil, err
	}

	rdlen := len(nsName) + len(mbName) + 20
	b := make([]byte, 0, len(name)+10+rdlen)
	b = append(b, name...)
	tail := make([]byte, 10)
	binary.BigEndian.PutUint16(tail[0:2], TypeSOA)
	binary.BigEndian.PutUint16(tail[2:4], ClassIN)
	binary.BigEndian.PutUint32(tail[4:8], s.TTL)
	binary.BigEndian.PutUint16(tail[8:10], helpers.ClampIntToUint16(rdlen))
	b = append(b, tail...)
	b = append(b, nsName...)
	b = append(b, mbName...)

	rdata := make([]byte, 20)
	binary.BigEndian.PutUint32(rdata[0:4], s.Serial)
	binary.BigEndian.PutUint32(rdata[4:8], s.Refresh)
	binary.BigEndian.PutUint32(rdata[8:12], s.Retry)
	binary.BigEndian.PutUint32(rdata[12:16], s.Expire)
	binary.BigEndian.PutUint32(rdata[16:20], s.Minimum)
	b = append(b, rdata...)
	return b, nil
}
