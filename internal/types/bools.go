package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseHasNuts converts the textual has_nuts field. Only the exact,
// case-sensitive string "true" is true.
func ParseHasNuts(v string) bool {
	return v == "true"
}

// TextBool decodes a JSON value with ParseHasNuts. Only the JSON string
// "true" yields true; JSON booleans, numbers and null are false.
type TextBool bool

func (b *TextBool) UnmarshalJSON(data []byte) error {
	*b = false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = TextBool(ParseHasNuts(s))
	return nil
}

// UnmarshalParam lets gin bind TextBool from form and query values
func (b *TextBool) UnmarshalParam(param string) error {
	*b = TextBool(ParseHasNuts(param))
	return nil
}

// FlexBool accepts a JSON boolean, or text interpreted by ParseHasNuts.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	*b = false
	switch s := string(bytes.TrimSpace(data)); {
	case s == "true":
		*b = true
	case strings.HasPrefix(s, `"`):
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*b = FlexBool(ParseHasNuts(text))
	}
	return nil
}

// UnmarshalParam lets gin bind FlexBool from form values
func (b *FlexBool) UnmarshalParam(param string) error {
	*b = FlexBool(ParseHasNuts(param))
	return nil
}

// IngredientList accepts either a JSON array of names or a single string of
// comma or newline separated names.
type IngredientList []string

func (l *IngredientList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = SplitIngredients(s)
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*l = clean(names)
	return nil
}

// SplitIngredients splits a free-text ingredient list on commas and newlines
func SplitIngredients(s string) IngredientList {
	return clean(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}))
}

func clean(names []string) IngredientList {
	var out IngredientList
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
