package app

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// SharePrefix precedes the token in share links.
const SharePrefix = "#data="

// EncodeShareToken packs d into a gzip compressed, base64 encoded token.
func EncodeShareToken(d *planner.Data) (string, error) {
	raw, err := planner.Marshal(d)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeShareToken unpacks a token produced by EncodeShareToken. A full
// share link fragment ("#data=...") or a URL escaped token is accepted.
func DecodeShareToken(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if i := strings.Index(token, SharePrefix); i >= 0 {
		token = token[i+len(SharePrefix):]
	} else {
		token = strings.TrimPrefix(token, "data=")
	}
	if unescaped, err := url.PathUnescape(token); err == nil {
		token = unescaped
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty share token", planner.ErrMalformedPayload)
	}
	compressed, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: share token: %v", planner.ErrMalformedPayload, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: share token: %v", planner.ErrMalformedPayload, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: share token: %v", planner.ErrMalformedPayload, err)
	}
	return raw, nil
}
