package epg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/xmltv"
)

// Generator and GeneratorURL identify this tool in the XMLTV tv element
const (
	Generator    = "epgrab"
	GeneratorURL = "https://github.com/stwalsh4118/epgrab"
)

// XMLTVOptions returns the document options used for source's guide
func XMLTVOptions(source string) xmltv.Options {
	return xmltv.Options{
		Generator:    Generator,
		GeneratorURL: GeneratorURL,
		Source:       source,
		Lang:         "ko",
	}
}

// BuildGuide infers stop times and converts channels to an XMLTV document
func BuildGuide(channels []provider.Channel, opts xmltv.Options) *xmltv.TV {
	return xmltv.Build(WithStopTimes(channels), opts)
}

// Values dereferences channel pointers
func Values(channels []*provider.Channel) []provider.Channel {
	out := make([]provider.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, *ch)
	}
	return out
}

// WriteGuide writes the guide to path. With no path it is sent to the unix
// socket at sock, and with neither it goes to stdout.
func WriteGuide(path, sock string, tv *xmltv.TV) error {
	switch {
	case path != "":
		if err := xmltv.WriteFile(path, tv); err != nil {
			return fmt.Errorf("failed to write guide to %s: %w", path, err)
		}
		return nil
	case sock != "":
		return writeSocket(sock, tv)
	default:
		return xmltv.Write(os.Stdout, tv)
	}
}

func writeSocket(sock string, tv *xmltv.TV) error {
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", sock, err)
	}
	if err := xmltv.Write(conn, tv); err != nil {
		conn.Close()
		return fmt.Errorf("failed to write guide to %s: %w", sock, err)
	}
	return conn.Close()
}

// RenderStoredGuide renders every stored channel and programme as XMLTV bytes
func (s *Store) RenderStoredGuide(ctx context.Context) ([]byte, error) {
	channels, err := s.LoadGuide(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := xmltv.Write(&buf, BuildGuide(channels, XMLTVOptions(s.source))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes the result's guide
func (r *Result) Render(w io.Writer, source string) error {
	return xmltv.Write(w, BuildGuide(Values(r.Channels), XMLTVOptions(source)))
}
