package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPayload means a result carries no answer payload at all.
	ErrEmptyPayload = errors.New("answer payload is empty")
	// ErrInvalidPayload means the persisted payload could not be decoded.
	ErrInvalidPayload = errors.New("answer payload is not valid")
	// ErrInvalidTestPart means the attempted passage list could not be decoded.
	ErrInvalidTestPart = errors.New("test part is not valid")
)

// AnswerValue is one raw answer slot as decoded from JSON: nil, string,
// json.Number, []any or map[string]any. Go ints and floats are accepted too.
type AnswerValue = any

// AnswerPayload is the persisted form of an answer slot array.
type AnswerPayload struct {
	Answers []AnswerValue `json:"answers"`
}

// ParseAnswerPayload decodes {"answers": [...]}. It never substitutes an
// empty array: a blank payload yields ErrEmptyPayload and a broken one
// ErrInvalidPayload.
func ParseAnswerPayload(raw []byte) ([]AnswerValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var payload struct {
		Answers *[]AnswerValue `json:"answers"`
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after answers object", ErrInvalidPayload)
	}
	if payload.Answers == nil {
		return nil, fmt.Errorf("%w: missing answers array", ErrInvalidPayload)
	}
	return *payload.Answers, nil
}

// EncodeAnswerPayload is the inverse of ParseAnswerPayload.
func EncodeAnswerPayload(answers []AnswerValue) ([]byte, error) {
	if answers == nil {
		answers = []AnswerValue{}
	}
	return json.Marshal(AnswerPayload{Answers: answers})
}

// ParseTestPart decodes the attempted passage indices. A blank payload means
// the whole quiz was attempted and yields nil.
func ParseTestPart(raw []byte) ([]int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var parts []int
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTestPart, err)
	}
	return parts, nil
}

// ===== SLOT VALUE HELPERS =====

func isBlank(v AnswerValue) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		for _, e := range t {
			if !isBlank(e) {
				return false
			}
		}
		return true
	case []int:
		return len(t) == 0
	case map[string]any:
		for _, e := range t {
			if !isBlank(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// asNumber reports v as an integer when it is a JSON or Go number.
func asNumber(v AnswerValue) (int, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asText(v AnswerValue) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := asText(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// elements flattens a selection value into its members.
func elements(v AnswerValue) []AnswerValue {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []int:
		out := make([]AnswerValue, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case map[string]any:
		return nil
	default:
		return []AnswerValue{t}
	}
}

// slotRange is the window of the answer array owned by one question.
type slotRange struct {
	slots []AnswerValue
	start int
	count int
}

func (r slotRange) slot(i int) AnswerValue {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

// at returns the raw value of sub-question k. A slot holding an object is
// keyed by sub-item index; when slot start+k is empty the question may have
// stored one object for all items in its first slot.
func (r slotRange) at(k int) AnswerValue {
	key := strconv.Itoa(k)
	v := r.slot(r.start + k)
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	if !isBlank(v) {
		return v
	}
	if m, ok := r.slot(r.start).(map[string]any); ok {
		return m[key]
	}
	return v
}

// all returns every slot value of the range.
func (r slotRange) all() []AnswerValue {
	out := make([]AnswerValue, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.slot(r.start+i))
	}
	return out
}
