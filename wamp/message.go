// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"fmt"
	"math"
)

// MessageType is the numeric code that opens every WAMP message.
type MessageType int64

const (
	TypeHello        MessageType = 1
	TypeWelcome      MessageType = 2
	TypeAbort        MessageType = 3
	TypeChallenge    MessageType = 4
	TypeAuthenticate MessageType = 5
	TypeGoodbye      MessageType = 6
	TypeError        MessageType = 8
	TypePublish      MessageType = 16
	TypePublished    MessageType = 17
	TypeSubscribe    MessageType = 32
	TypeSubscribed   MessageType = 33
	TypeUnsubscribe  MessageType = 34
	TypeUnsubscribed MessageType = 35
	TypeEvent        MessageType = 36
	TypeCall         MessageType = 48
	TypeResult       MessageType = 50
)

var messageTypeNames = map[MessageType]string{
	TypeHello:        "HELLO",
	TypeWelcome:      "WELCOME",
	TypeAbort:        "ABORT",
	TypeChallenge:    "CHALLENGE",
	TypeAuthenticate: "AUTHENTICATE",
	TypeGoodbye:      "GOODBYE",
	TypeError:        "ERROR",
	TypePublish:      "PUBLISH",
	TypePublished:    "PUBLISHED",
	TypeSubscribe:    "SUBSCRIBE",
	TypeSubscribed:   "SUBSCRIBED",
	TypeUnsubscribe:  "UNSUBSCRIBE",
	TypeUnsubscribed: "UNSUBSCRIBED",
	TypeEvent:        "EVENT",
	TypeCall:         "CALL",
	TypeResult:       "RESULT",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int64(t))
}

// Message is one WAMP protocol message.
type Message interface {
	Type() MessageType

	// list returns the message in wire order, type code first.
	list() []any
}

// Hello opens a session: [HELLO, Realm, Details].
type Hello struct {
	Realm   string
	Details map[string]any
}

// Welcome accepts a session: [WELCOME, Session, Details].
type Welcome struct {
	SessionID int64
	Details   map[string]any
}

// Abort refuses a session: [ABORT, Details, Reason].
type Abort struct {
	Details map[string]any
	Reason  string
}

// Challenge asks the client to authenticate: [CHALLENGE, AuthMethod, Extra].
type Challenge struct {
	AuthMethod string
	Extra      map[string]any
}

// Authenticate answers a challenge: [AUTHENTICATE, Signature, Extra].
type Authenticate struct {
	Signature string
	Extra     map[string]any
}

// Goodbye closes a session: [GOODBYE, Details, Reason].
type Goodbye struct {
	Details map[string]any
	Reason  string
}

// Error reports a failed request:
// [ERROR, REQUEST.Type, REQUEST.Request, Details, Error, Arguments, ArgumentsKw].
type Error struct {
	RequestType MessageType
	RequestID   int64
	Details     map[string]any
	URI         string
	Args        []any
	KwArgs      map[string]any
}

// Publish: [PUBLISH, Request, Options, Topic, Arguments, ArgumentsKw].
type Publish struct {
	RequestID int64
	Options   map[string]any
	Topic     string
	Args      []any
	KwArgs    map[string]any
}

// Published acknowledges a publish: [PUBLISHED, PUBLISH.Request, Publication].
type Published struct {
	RequestID     int64
	PublicationID int64
}

// Subscribe: [SUBSCRIBE, Request, Options, Topic].
type Subscribe struct {
	RequestID int64
	Options   map[string]any
	Topic     string
}

// Subscribed: [SUBSCRIBED, SUBSCRIBE.Request, Subscription].
type Subscribed struct {
	RequestID      int64
	SubscriptionID int64
}

// Unsubscribe: [UNSUBSCRIBE, Request, SUBSCRIBED.Subscription].
type Unsubscribe struct {
	RequestID      int64
	SubscriptionID int64
}

// Unsubscribed: [UNSUBSCRIBED, UNSUBSCRIBE.Request].
type Unsubscribed struct {
	RequestID int64
}

// Event delivers a publication:
// [EVENT, SUBSCRIBED.Subscription, PUBLISHED.Publication, Details, Arguments, ArgumentsKw].
type Event struct {
	SubscriptionID int64
	PublicationID  int64
	Details        map[string]any
	Args           []any
	KwArgs         map[string]any
}

// Call: [CALL, Request, Options, Procedure, Arguments, ArgumentsKw].
type Call struct {
	RequestID int64
	Options   map[string]any
	Procedure string
	Args      []any
	KwArgs    map[string]any
}

// Result: [RESULT, CALL.Request, Details, Arguments, ArgumentsKw].
type Result struct {
	RequestID int64
	Details   map[string]any
	Args      []any
	KwArgs    map[string]any
}

func (*Hello) Type() MessageType        { return TypeHello }
func (*Welcome) Type() MessageType      { return TypeWelcome }
func (*Abort) Type() MessageType        { return TypeAbort }
func (*Challenge) Type() MessageType    { return TypeChallenge }
func (*Authenticate) Type() MessageType { return TypeAuthenticate }
func (*Goodbye) Type() MessageType      { return TypeGoodbye }
func (*Error) Type() MessageType        { return TypeError }
func (*Publish) Type() MessageType      { return TypePublish }
func (*Published) Type() MessageType    { return TypePublished }
func (*Subscribe) Type() MessageType    { return TypeSubscribe }
func (*Subscribed) Type() MessageType   { return TypeSubscribed }
func (*Unsubscribe) Type() MessageType  { return TypeUnsubscribe }
func (*Unsubscribed) Type() MessageType { return TypeUnsubscribed }
func (*Event) Type() MessageType        { return TypeEvent }
func (*Call) Type() MessageType         { return TypeCall }
func (*Result) Type() MessageType       { return TypeResult }

func (m *Hello) list() []any {
	return []any{TypeHello, m.Realm, dict(m.Details)}
}

func (m *Welcome) list() []any {
	return []any{TypeWelcome, m.SessionID, dict(m.Details)}
}

func (m *Abort) list() []any {
	return []any{TypeAbort, dict(m.Details), m.Reason}
}

func (m *Challenge) list() []any {
	return []any{TypeChallenge, m.AuthMethod, dict(m.Extra)}
}

func (m *Authenticate) list() []any {
	return []any{TypeAuthenticate, m.Signature, dict(m.Extra)}
}

func (m *Goodbye) list() []any {
	return []any{TypeGoodbye, dict(m.Details), m.Reason}
}

func (m *Error) list() []any {
	return withPayload([]any{TypeError, m.RequestType, m.RequestID, dict(m.Details), m.URI}, m.Args, m.KwArgs)
}

func (m *Publish) list() []any {
	return withPayload([]any{TypePublish, m.RequestID, dict(m.Options), m.Topic}, m.Args, m.KwArgs)
}

func (m *Published) list() []any {
	return []any{TypePublished, m.RequestID, m.PublicationID}
}

func (m *Subscribe) list() []any {
	return []any{TypeSubscribe, m.RequestID, dict(m.Options), m.Topic}
}

func (m *Subscribed) list() []any {
	return []any{TypeSubscribed, m.RequestID, m.SubscriptionID}
}

func (m *Unsubscribe) list() []any {
	return []any{TypeUnsubscribe, m.RequestID, m.SubscriptionID}
}

func (m *Unsubscribed) list() []any {
	return []any{TypeUnsubscribed, m.RequestID}
}

func (m *Event) list() []any {
	return withPayload([]any{TypeEvent, m.SubscriptionID, m.PublicationID, dict(m.Details)}, m.Args, m.KwArgs)
}

func (m *Call) list() []any {
	return withPayload([]any{TypeCall, m.RequestID, dict(m.Options), m.Procedure}, m.Args, m.KwArgs)
}

func (m *Result) list() []any {
	return withPayload([]any{TypeResult, m.RequestID, dict(m.Details)}, m.Args, m.KwArgs)
}

// dict substitutes an empty map for nil so that every serializer
// writes an empty dictionary rather than null.
func dict(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// withPayload appends the optional Arguments and ArgumentsKw elements.
// Arguments must be present (possibly empty) whenever ArgumentsKw is.
func withPayload(head []any, args []any, kwargs map[string]any) []any {
	if len(kwargs) > 0 {
		if args == nil {
			args = []any{}
		}
		return append(head, args, kwargs)
	}
	if len(args) > 0 {
		return append(head, args)
	}
	return head
}

// parseMessage builds a Message from its decoded list form. Integer
// fields accept any numeric representation a codec may produce.
func parseMessage(fields []any) (Message, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("wamp: empty message")
	}
	code, ok := asInt64(fields[0])
	if !ok {
		return nil, fmt.Errorf("wamp: message type %#v is not an integer", fields[0])
	}
	messageType := MessageType(code)
	r := &listReader{messageType: messageType, fields: fields}

	var message Message
	switch messageType {
	case TypeHello:
		message = &Hello{Realm: r.str(1), Details: r.dict(2)}
	case TypeWelcome:
		message = &Welcome{SessionID: r.id(1), Details: r.dict(2)}
	case TypeAbort:
		message = &Abort{Details: r.dict(1), Reason: r.str(2)}
	case TypeChallenge:
		message = &Challenge{AuthMethod: r.str(1), Extra: r.dict(2)}
	case TypeAuthenticate:
		message = &Authenticate{Signature: r.str(1), Extra: r.dict(2)}
	case TypeGoodbye:
		message = &Goodbye{Details: r.dict(1), Reason: r.str(2)}
	case TypeError:
		message = &Error{
			RequestType: MessageType(r.id(1)),
			RequestID:   r.id(2),
			Details:     r.dict(3),
			URI:         r.str(4),
			Args:        r.optionalList(5),
			KwArgs:      r.optionalDict(6),
		}
	case TypePublish:
		message = &Publish{
			RequestID: r.id(1),
			Options:   r.dict(2),
			Topic:     r.str(3),
			Args:      r.optionalList(4),
			KwArgs:    r.optionalDict(5),
		}
	case TypePublished:
		message = &Published{RequestID: r.id(1), PublicationID: r.id(2)}
	case TypeSubscribe:
		message = &Subscribe{RequestID: r.id(1), Options: r.dict(2), Topic: r.str(3)}
	case TypeSubscribed:
		message = &Subscribed{RequestID: r.id(1), SubscriptionID: r.id(2)}
	case TypeUnsubscribe:
		message = &Unsubscribe{RequestID: r.id(1), SubscriptionID: r.id(2)}
	case TypeUnsubscribed:
		message = &Unsubscribed{RequestID: r.id(1)}
	case TypeEvent:
		message = &Event{
			SubscriptionID: r.id(1),
			PublicationID:  r.id(2),
			Details:        r.dict(3),
			Args:           r.optionalList(4),
			KwArgs:         r.optionalDict(5),
		}
	case TypeCall:
		message = &Call{
			RequestID: r.id(1),
			Options:   r.dict(2),
			Procedure: r.str(3),
			Args:      r.optionalList(4),
			KwArgs:    r.optionalDict(5),
		}
	case TypeResult:
		message = &Result{
			RequestID: r.id(1),
			Details:   r.dict(2),
			Args:      r.optionalList(3),
			KwArgs:    r.optionalDict(4),
		}
	default:
		return nil, fmt.Errorf("wamp: unsupported message type %d", code)
	}
	if r.err != nil {
		return nil, r.err
	}
	return message, nil
}

// listReader extracts typed fields from a decoded message list,
// remembering the first failure.
type listReader struct {
	messageType MessageType
	fields      []any
	err         error
}

func (r *listReader) fail(index int, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("wamp: %s field %d: %s", r.messageType, index, fmt.Sprintf(format, args...))
	}
}

func (r *listReader) field(index int) (any, bool) {
	if index >= len(r.fields) {
		r.fail(index, "missing")
		return nil, false
	}
	return r.fields[index], true
}

func (r *listReader) id(index int) int64 {
	value, ok := r.field(index)
	if !ok {
		return 0
	}
	id, ok := asInt64(value)
	if !ok || id < 0 {
		r.fail(index, "expected non-negative integer, got %T", value)
	}
	return id
}

func (r *listReader) str(index int) string {
	value, ok := r.field(index)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		r.fail(index, "expected string, got %T", value)
	}
	return s
}

func (r *listReader) dict(index int) map[string]any {
	value, ok := r.field(index)
	if !ok {
		return nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		r.fail(index, "expected dictionary, got %T", value)
	}
	return m
}

func (r *listReader) optionalList(index int) []any {
	if index >= len(r.fields) || r.fields[index] == nil {
		return nil
	}
	list, ok := r.fields[index].([]any)
	if !ok {
		r.fail(index, "expected list, got %T", r.fields[index])
	}
	return list
}

func (r *listReader) optionalDict(index int) map[string]any {
	if index >= len(r.fields) || r.fields[index] == nil {
		return nil
	}
	m, ok := r.fields[index].(map[string]any)
	if !ok {
		r.fail(index, "expected dictionary, got %T", r.fields[index])
	}
	return m
}

// asInt64 converts the numeric representations produced by the codecs
// (and by Go callers building messages by hand) to int64.
func asInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case uint64:
		if typed > math.MaxInt64 {
			return 0, false
		}
		return int64(typed), true
	case uint32:
		return int64(typed), true
	case MessageType:
		return int64(typed), true
	case float64:
		if typed != math.Trunc(typed) || math.Abs(typed) > 1<<53 {
			return 0, false
		}
		return int64(typed), true
	}
	return 0, false
}
