package xmltv

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

var kst = time.FixedZone("KST", 9*60*60)

func sampleChannels() []provider.Channel {
	start := time.Date(2025, 5, 26, 6, 0, 0, 0, kst)
	stop := start.Add(90 * time.Minute)
	desc := "아침 뉴스 & 날씨"
	extras := "HD 자막"
	return []provider.Channel{
		{
			SvcID:   "608",
			Name:    "KBS1",
			ID:      "608.lguplus",
			Number:  "9",
			IconURL: "https://img.example.test/kbs1.png",
			Programmes: []provider.Programme{
				{ChannelID: "608.lguplus", Title: "뉴스광장", Desc: &desc, Start: start, Stop: &stop, Rating: 0, Extras: &extras, Categories: []string{"뉴스/정보"}},
				{ChannelID: "608.lguplus", Title: "드라마", Start: stop, Rating: 15},
			},
		},
		{SvcID: "700", Name: "JTBC", ID: "700.lguplus"},
	}
}

func TestBuild(t *testing.T) {
	tv := Build(sampleChannels(), Options{Generator: "epgrab", Source: "LG", Lang: "ko"})

	require.Len(t, tv.Channels, 2)
	kbs := tv.Channels[0]
	assert.Equal(t, "608.lguplus", kbs.ID)
	assert.Equal(t, []Text{{Lang: "ko", Value: "KBS1"}, {Value: "LG"}, {Value: "9"}}, kbs.DisplayNames)
	require.NotNil(t, kbs.Icon)
	assert.Nil(t, tv.Channels[1].Icon)

	require.Len(t, tv.Programmes, 2)
	first := tv.Programmes[0]
	assert.Equal(t, "20250526060000 +0900", first.Start)
	assert.Equal(t, "20250526073000 +0900", first.Stop)
	assert.Equal(t, "608.lguplus", first.Channel)
	assert.Equal(t, []Text{{Lang: "ko", Value: "HD 자막"}}, first.Keywords)
	assert.Equal(t, "전체 관람가", first.Rating.Value)

	second := tv.Programmes[1]
	assert.Empty(t, second.Stop)
	assert.Empty(t, second.Descs)
	assert.Empty(t, second.Categories)
	assert.Equal(t, "15세 이상 관람가", second.Rating.Value)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(sampleChannels(), Options{Generator: "epgrab", Lang: "ko"})))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header+`<!DOCTYPE tv SYSTEM "xmltv.dtd">`))
	assert.Contains(t, out, `<tv generator-info-name="epgrab">`)
	assert.Contains(t, out, `<programme start="20250526060000 +0900" stop="20250526073000 +0900" channel="608.lguplus">`)
	assert.Contains(t, out, `<programme start="20250526073000 +0900" channel="608.lguplus">`)
	assert.Contains(t, out, `아침 뉴스 &amp; 날씨`)
	assert.Contains(t, out, `<rating system="KMRB">`)

	// Element order inside a programme follows the DTD
	titleAt := strings.Index(out, "<title")
	descAt := strings.Index(out, "<desc")
	categoryAt := strings.Index(out, "<category")
	keywordAt := strings.Index(out, "<keyword")
	ratingAt := strings.Index(out, "<rating")
	assert.True(t, titleAt < descAt && descAt < categoryAt && categoryAt < keywordAt && keywordAt < ratingAt)

	var decoded TV
	body := strings.SplitN(out, "\n", 3)[2]
	require.NoError(t, xml.Unmarshal([]byte(body), &decoded))
	assert.Len(t, decoded.Programmes, 2)
	assert.Equal(t, "뉴스광장", decoded.Programmes[0].Titles[0].Value)
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "xmltv.xml")

	require.NoError(t, WriteFile(path, Build(sampleChannels(), Options{})))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "608.lguplus")

	// Overwrite leaves no temp files behind
	require.NoError(t, WriteFile(path, Build(nil, Options{})))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "608.lguplus")
}

func TestRatingLabel(t *testing.T) {
	assert.Equal(t, "전체 관람가", RatingLabel(0))
	assert.Equal(t, "7세 이상 관람가", RatingLabel(7))
	assert.Equal(t, "19세 이상 관람가", RatingLabel(19))
}
