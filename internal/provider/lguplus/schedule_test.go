package lguplus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

const scheduleBody = `{"brdCntTvSchIDtoList": [
  {"brdPgmTitNm": " 뉴스광장 ", "brdPgmDscr": "아침 뉴스", "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "06:00:00",
   "brdWtchAgeGrdCd": "0", "brdPgmRsolNm": "HD", "subtBrdYn": "Y", "explBrdYn": "N", "silaBrdYn": "N", "urcBrdCntrTvSchdGnreCd": "12"},
  {"brdPgmTitNm": "", "brdPgmDscr": "   ", "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "07:30:00",
   "brdWtchAgeGrdCd": "4", "urcBrdCntrTvSchdGnreCd": "99"},
  {"brdPgmTitNm": "Broken", "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "25:99:00"},
  {"brdPgmTitNm": "드라마", "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "21:00:00", "brdWtchAgeGrdCd": 3,
   "urcBrdCntrTvSchdGnreCd": "03", "brdPgmRsolNm": "1080p", "subtBrdYn": "Y", "explBrdYn": "N", "silaBrdYn": "Y"},
  {"brdPgmTitNm": "숫자 날짜", "brdCntrTvChnlBrdDt": 20250526, "epgStrtTme": "22:00:00"}
]}`

func TestFetchDay_Success(t *testing.T) {
	f := &stubFetcher{body: scheduleBody}
	p := newTestProvider(f)
	day := testDay(p)

	res := p.FetchDay(context.Background(), testChannel(), day)
	require.Equal(t, provider.StatusOK, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Programmes, 3)
	assert.Equal(t, 2, res.Skipped)

	news := res.Programmes[0]
	assert.Equal(t, "608.lguplus", news.ChannelID)
	assert.Equal(t, "뉴스광장", news.Title)
	require.NotNil(t, news.Desc)
	assert.Equal(t, "아침 뉴스", *news.Desc)
	assert.True(t, news.Start.Equal(time.Date(2025, 5, 26, 6, 0, 0, 0, p.Location())))
	assert.Nil(t, news.Stop)
	assert.Equal(t, 0, news.Rating)
	require.NotNil(t, news.Extras)
	assert.Equal(t, "HD 자막", *news.Extras)
	assert.Equal(t, []string{"뉴스/정보"}, news.Categories)

	untitledProg := res.Programmes[1]
	assert.Equal(t, "제목 없음", untitledProg.Title)
	assert.Nil(t, untitledProg.Desc)
	assert.Equal(t, 19, untitledProg.Rating)
	assert.Nil(t, untitledProg.Extras)
	assert.Equal(t, []string{"코드:99"}, untitledProg.Categories)

	drama := res.Programmes[2]
	assert.True(t, drama.Start.Equal(time.Date(2025, 5, 26, 21, 0, 0, 0, p.Location())))
	assert.Equal(t, 15, drama.Rating)
	require.NotNil(t, drama.Extras)
	assert.Equal(t, "1080p 자막 수화", *drama.Extras)
	assert.Equal(t, []string{"드라마"}, drama.Categories)

	require.Len(t, f.calls, 1)
	assert.Equal(t, testScheduleURL, f.calls[0].url)
	assert.Equal(t, "20250526", f.calls[0].params.Get("BAS_DT"))
	assert.Equal(t, "1", f.calls[0].params.Get("CHNL_TYPE"))
	assert.Equal(t, "608", f.calls[0].params.Get("CHNL_ID"))
}

func TestFetchDay_UsesBroadcastCalendarDay(t *testing.T) {
	f := &stubFetcher{body: `{"brdCntTvSchIDtoList": []}`}
	p := newTestProvider(f)

	// 2025-05-26 20:00 UTC is already the 27th in Seoul
	p.FetchDay(context.Background(), testChannel(), time.Date(2025, 5, 26, 20, 0, 0, 0, time.UTC))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "20250527", f.calls[0].params.Get("BAS_DT"))
}

func TestFetchDay_EmptyOrMissingList(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty list", body: `{"brdCntTvSchIDtoList": []}`},
		{name: "missing list", body: `{}`},
		{name: "null list", body: `{"brdCntTvSchIDtoList": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(&stubFetcher{body: tt.body})

			var res provider.DayResult
			require.NotPanics(t, func() {
				res = p.FetchDay(context.Background(), testChannel(), testDay(p))
			})
			assert.Equal(t, provider.StatusEmpty, res.Status)
			assert.NoError(t, res.Err)
			assert.NotNil(t, res.Programmes)
			assert.Empty(t, res.Programmes)
		})
	}
}

func TestFetchDay_ListNotASequence(t *testing.T) {
	p := newTestProvider(&stubFetcher{body: `{"brdCntTvSchIDtoList": "oops"}`})

	res := p.FetchDay(context.Background(), testChannel(), testDay(p))
	assert.Equal(t, provider.StatusEmpty, res.Status)
	assert.Empty(t, res.Programmes)

	var schemaErr *SchemaError
	require.True(t, errors.As(res.Err, &schemaErr))
	assert.Equal(t, fieldProgrammeList, schemaErr.Field)
}

func TestFetchDay_FetchFailure(t *testing.T) {
	cause := &transport.FetchError{Kind: transport.KindTimeout, URL: testScheduleURL}
	p := newTestProvider(&stubFetcher{err: cause})

	res := p.FetchDay(context.Background(), testChannel(), testDay(p))
	assert.Equal(t, provider.StatusFailed, res.Status)
	assert.Empty(t, res.Programmes)
	assert.True(t, transport.IsKind(res.Err, transport.KindTimeout))
}

func TestFetchDay_RecoversPanic(t *testing.T) {
	p := newTestProvider(panicFetcher{})

	var res provider.DayResult
	require.NotPanics(t, func() {
		res = p.FetchDay(context.Background(), testChannel(), testDay(p))
	})
	assert.Equal(t, provider.StatusFailed, res.Status)
	assert.NotNil(t, res.Programmes)
	assert.Empty(t, res.Programmes)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "upstream exploded")
	assert.Contains(t, res.Err.Error(), "KBS1")
}

func TestFetchDay_OneMalformedEntryNeverZeroesBatch(t *testing.T) {
	entries := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		if i == 4 {
			entries = append(entries, `{"brdPgmTitNm": "bad", "brdCntrTvChnlBrdDt": "2025-05-26", "epgStrtTme": "noon"}`)
			continue
		}
		entries = append(entries, fmt.Sprintf(
			`{"brdPgmTitNm": "Show %d", "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "%02d:00:00"}`, i, i))
	}
	body := `{"brdCntTvSchIDtoList": [` + strings.Join(entries, ",") + `]}`
	p := newTestProvider(&stubFetcher{body: body})

	res := p.FetchDay(context.Background(), testChannel(), testDay(p))
	assert.Equal(t, provider.StatusOK, res.Status)
	assert.Len(t, res.Programmes, 9)
	assert.Equal(t, 1, res.Skipped)
}

func TestFetchDay_AllEntriesMalformed(t *testing.T) {
	body := `{"brdCntTvSchIDtoList": [42, "x", {"brdPgmTitNm": "no time"}]}`
	p := newTestProvider(&stubFetcher{body: body})

	res := p.FetchDay(context.Background(), testChannel(), testDay(p))
	assert.Equal(t, provider.StatusEmpty, res.Status)
	assert.Empty(t, res.Programmes)
	assert.Equal(t, 3, res.Skipped)
}

func TestNormalizeProgramme_StartTime(t *testing.T) {
	loc := broadcastLocation()

	tests := []struct {
		name  string
		entry string
		want  time.Time
		ok    bool
	}{
		{
			name:  "valid",
			entry: `{"brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "23:59:59"}`,
			want:  time.Date(2025, 5, 26, 23, 59, 59, 0, loc),
			ok:    true,
		},
		{name: "missing date", entry: `{"epgStrtTme": "06:00:00"}`},
		{name: "missing time", entry: `{"brdCntrTvChnlBrdDt": "20250526"}`},
		{name: "null time", entry: `{"brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": null}`},
		{name: "no seconds", entry: `{"brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "06:00"}`},
		{name: "bad date", entry: `{"brdCntrTvChnlBrdDt": "20251340", "epgStrtTme": "06:00:00"}`},
		{name: "time is an object", entry: `{"brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": {"h": 6}}`},
		{name: "not an object", entry: `["20250526", "06:00:00"]`},
		{name: "numeric date", entry: `{"brdCntrTvChnlBrdDt": 20250526, "epgStrtTme": "06:00:00"}`},
		{
			name:  "numeric date with numeric text fields",
			entry: `{"brdPgmTitNm":123,"brdCntrTvChnlBrdDt":20250526,"epgStrtTme":"06:00:00","brdPgmRsolNm":1e3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, ok := normalizeProgramme(json.RawMessage(tt.entry), "c", loc)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, prog.Start.Equal(tt.want), "got %v", prog.Start)
				assert.Equal(t, "c", prog.ChannelID)
			}
		})
	}
}

func TestNormalizeProgramme_BadFieldDoesNotFailRecord(t *testing.T) {
	entry := `{"brdPgmTitNm": ["not", "a", "string"], "brdPgmDscr": {"x": 1},
	  "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "06:00:00", "brdWtchAgeGrdCd": true}`

	prog, ok := normalizeProgramme(json.RawMessage(entry), "c", broadcastLocation())
	require.True(t, ok)
	assert.Equal(t, untitled, prog.Title)
	assert.Nil(t, prog.Desc)
	assert.Equal(t, 0, prog.Rating)
}

func TestNormalizeProgramme_NumericTextFields(t *testing.T) {
	entry := `{"brdPgmTitNm": 123, "brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "06:00:00",
	  "brdPgmRsolNm": 1e3, "brdWtchAgeGrdCd": 4, "urcBrdCntrTvSchdGnreCd": 12}`

	prog, ok := normalizeProgramme(json.RawMessage(entry), "c", broadcastLocation())
	require.True(t, ok)
	assert.Equal(t, untitled, prog.Title)
	assert.Nil(t, prog.Extras)
	assert.Equal(t, 19, prog.Rating)
	assert.Equal(t, []string{"뉴스/정보"}, prog.Categories)
}

func TestNormalizeProgramme_PaddedAgeCodeIsUnknown(t *testing.T) {
	entry := `{"brdCntrTvChnlBrdDt": "20250526", "epgStrtTme": "06:00:00", "brdWtchAgeGrdCd": " 4 "}`

	prog, ok := normalizeProgramme(json.RawMessage(entry), "c", broadcastLocation())
	require.True(t, ok)
	assert.Equal(t, 0, prog.Rating)
}

func TestExtrasOf(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  *string
	}{
		{name: "all flags", entry: `{"brdPgmRsolNm": "1080p", "subtBrdYn": "Y", "explBrdYn": "Y", "silaBrdYn": "Y"}`, want: strPtr("1080p 자막 화면해설 수화")},
		{name: "resolution only", entry: `{"brdPgmRsolNm": "UHD"}`, want: strPtr("UHD")},
		{name: "flags only", entry: `{"explBrdYn": "Y"}`, want: strPtr("화면해설")},
		{name: "lowercase flag ignored", entry: `{"subtBrdYn": "y"}`},
		{name: "nothing", entry: `{"subtBrdYn": "N"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rp rawProgramme
			require.True(t, decodeRecord(json.RawMessage(tt.entry), &rp))
			assert.Equal(t, tt.want, extrasOf(rp))
		})
	}
}

func strPtr(s string) *string { return &s }
