// Package xmltv renders guide channels and programmes as an XMLTV document.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// TimeLayout is the XMLTV timestamp format
const TimeLayout = "20060102150405 -0700"

const (
	doctype      = `<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n"
	ratingSystem = "KMRB"
)

// TV is the root XMLTV document
type TV struct {
	XMLName        xml.Name    `xml:"tv"`
	Generator      string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorURL   string      `xml:"generator-info-url,attr,omitempty"`
	SourceInfoName string      `xml:"source-info-name,attr,omitempty"`
	Channels       []Channel   `xml:"channel"`
	Programmes     []Programme `xml:"programme"`
}

// Channel is an XMLTV channel
type Channel struct {
	ID           string `xml:"id,attr"`
	DisplayNames []Text `xml:"display-name"`
	Icon         *Icon  `xml:"icon,omitempty"`
}

// Icon is a channel icon
type Icon struct {
	Src string `xml:"src,attr"`
}

// Text is an element with optional language
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Rating is a programme content rating
type Rating struct {
	System string `xml:"system,attr,omitempty"`
	Value  string `xml:"value"`
}

// Programme is an XMLTV programme. Element order follows xmltv.dtd.
type Programme struct {
	Start      string  `xml:"start,attr"`
	Stop       string  `xml:"stop,attr,omitempty"`
	Channel    string  `xml:"channel,attr"`
	Titles     []Text  `xml:"title"`
	Descs      []Text  `xml:"desc,omitempty"`
	Categories []Text  `xml:"category,omitempty"`
	Keywords   []Text  `xml:"keyword,omitempty"`
	Rating     *Rating `xml:"rating,omitempty"`
}

// Options controls document-level attributes
type Options struct {
	Generator    string
	GeneratorURL string
	Source       string
	// Lang is set on text elements. Empty omits the attribute.
	Lang string
}

// Build converts channels and their programmes. Stop is written only when the
// programme has one; inference belongs to the caller.
func Build(channels []provider.Channel, opts Options) *TV {
	tv := &TV{
		Generator:      opts.Generator,
		GeneratorURL:   opts.GeneratorURL,
		SourceInfoName: opts.Source,
		Channels:       make([]Channel, 0, len(channels)),
		Programmes:     []Programme{},
	}

	for _, ch := range channels {
		xc := Channel{
			ID:           ch.ID,
			DisplayNames: []Text{{Lang: opts.Lang, Value: ch.Name}},
		}
		if opts.Source != "" {
			xc.DisplayNames = append(xc.DisplayNames, Text{Value: opts.Source})
		}
		if ch.Number != "" {
			xc.DisplayNames = append(xc.DisplayNames, Text{Value: ch.Number})
		}
		if ch.IconURL != "" {
			xc.Icon = &Icon{Src: ch.IconURL}
		}
		tv.Channels = append(tv.Channels, xc)

		for _, p := range ch.Programmes {
			tv.Programmes = append(tv.Programmes, programmeOf(p, opts.Lang))
		}
	}
	return tv
}

func programmeOf(p provider.Programme, lang string) Programme {
	xp := Programme{
		Start:   p.Start.Format(TimeLayout),
		Channel: p.ChannelID,
		Titles:  []Text{{Lang: lang, Value: p.Title}},
		Rating:  &Rating{System: ratingSystem, Value: RatingLabel(p.Rating)},
	}
	if p.Stop != nil {
		xp.Stop = p.Stop.Format(TimeLayout)
	}
	if p.Desc != nil {
		xp.Descs = []Text{{Lang: lang, Value: *p.Desc}}
	}
	for _, c := range p.Categories {
		xp.Categories = append(xp.Categories, Text{Lang: lang, Value: c})
	}
	if p.Extras != nil {
		xp.Keywords = []Text{{Lang: lang, Value: *p.Extras}}
	}
	return xp
}

// RatingLabel renders a minimum viewer age as a KMRB label
func RatingLabel(age int) string {
	if age <= 0 {
		return "전체 관람가"
	}
	return fmt.Sprintf("%d세 이상 관람가", age)
}

// Write encodes tv with the XML header and doctype
func Write(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, xml.Header+doctype); err != nil {
		return fmt.Errorf("failed to write xmltv header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("failed to encode xmltv: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes tv to path atomically using a temp file and rename
func WriteFile(path string, tv *TV) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "xmltv-*.xml.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, tv); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move xmltv into place: %w", err)
	}
	return nil
}
