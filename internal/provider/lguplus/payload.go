package lguplus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Upstream field names. The API uses abbreviated Korean romanizations.
const (
	fieldChannelList   = "brdCntrTvChnlIDtoList"
	fieldGenreList     = "brdGnreDtoList"
	fieldProgrammeList = "brdCntTvSchIDtoList"
)

// SchemaError reports an upstream field with an unexpected shape
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: field %s: %s", e.Field, e.Reason)
}

// channelListResponse is the tv-channel-list payload
type channelListResponse struct {
	Channels json.RawMessage `json:"brdCntrTvChnlIDtoList"`
	Genres   json.RawMessage `json:"brdGnreDtoList"`
}

// scheduleResponse is the tv-schedule-list payload
type scheduleResponse struct {
	Programmes json.RawMessage `json:"brdCntTvSchIDtoList"`
}

type rawGenre struct {
	Code optCode   `json:"urcBrdCntrTvChnlGnreCd"`
	Name optString `json:"urcBrdCntrTvChnlGnreNm"`
}

type rawChannel struct {
	ServiceID optCode   `json:"urcBrdCntrTvChnlId"`
	Name      optString `json:"urcBrdCntrTvChnlNm"`
	Number    optCode   `json:"urcBrdCntrTvChnlNo"`
	IconURL   optString `json:"bgImgUrl"`
	GenreCode optCode   `json:"urcBrdCntrTvChnlGnreCd"`
}

type rawProgramme struct {
	Title        optString `json:"brdPgmTitNm"`
	Desc         optString `json:"brdPgmDscr"`
	Date         optString `json:"brdCntrTvChnlBrdDt"`
	StartTime    optString `json:"epgStrtTme"`
	AgeCode      optCode   `json:"brdWtchAgeGrdCd"`
	Resolution   optString `json:"brdPgmRsolNm"`
	Subtitle     optString `json:"subtBrdYn"`
	Narration    optString `json:"explBrdYn"`
	SignLanguage optString `json:"silaBrdYn"`
	CategoryCode optCode   `json:"urcBrdCntrTvSchdGnreCd"`
}

// optString is an optional text field. Only JSON strings are accepted; null
// or a missing key leaves it unset. Any other shape is recorded in Err and
// the field counts as unset, so one bad field never fails the whole record.
type optString struct {
	Value string
	Set   bool
	Err   error
}

func (o *optString) UnmarshalJSON(data []byte) error {
	o.Value, o.Set, o.Err = decodeScalar(data, false)
	return nil
}

// String returns the value, or "" when unset
func (o optString) String() string {
	return o.Value
}

// Present reports whether the field holds a non-blank value
func (o optString) Present() bool {
	return o.Set && strings.TrimSpace(o.Value) != ""
}

// optCode is an optional code or number field. Upstream sends these either
// quoted or bare, so numbers are accepted and keep their literal text.
type optCode struct {
	optString
}

func (o *optCode) UnmarshalJSON(data []byte) error {
	o.Value, o.Set, o.Err = decodeScalar(data, true)
	return nil
}

func decodeScalar(data []byte, numbers bool) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if !numbers {
			return "", false, fmt.Errorf("expected string, got number %.20s", data)
		}
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	}
	return "", false, fmt.Errorf("unexpected JSON value %.20s", data)
}

// decodeList validates that a list field is a JSON array and splits it into entries.
// A missing field yields (nil, nil); any other shape is a *SchemaError.
func decodeList(field string, raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, &SchemaError{Field: field, Reason: "not a list"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &SchemaError{Field: field, Reason: err.Error()}
	}
	return items, nil
}

// decodeRecord decodes one list entry, which must be a JSON object
func decodeRecord(raw json.RawMessage, dst any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
