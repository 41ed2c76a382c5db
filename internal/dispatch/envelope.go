package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type MessageType string

const (
	TypeRequest  MessageType = "request"
	TypeResponse MessageType = "response"
	TypeError    MessageType = "error"
)

// Envelope - общий формат запросов и ответов для всех транспортов.
type Envelope struct {
	ID      string          `json:"id"`
	Type    MessageType     `json:"type"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TS      time.Time       `json:"ts"`
}

// Форматы ts, которые принимаются на входе. Время без зоны считается UTC.
var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON разбирает конверт, не отвергая его из-за ts: пустое,
// отсутствующее или неразборчивое значение даёт нулевое время.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type plain Envelope
	aux := struct {
		*plain
		TS json.RawMessage `json:"ts"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.TS = parseTS(aux.TS)
	return nil
}

func parseTS(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Salvage достаёт id и action из тела, которое не разобралось как конверт.
// Нестроковый id (например число) возвращается в исходной JSON-записи.
func Salvage(data []byte) (id, action string) {
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(data, &loose); err != nil {
		return "", ""
	}
	return looseString(loose["id"]), looseString(loose["action"])
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}

// Decode разбирает один конверт. Пустой type считается запросом.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		env.Type = TypeRequest
	}
	return env, nil
}

// Encode сериализует конверт в одну строку без завершающего перевода строки.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// PayloadAs разбирает payload ответа в v.
func (e Envelope) PayloadAs(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(e.Payload, v)
}
