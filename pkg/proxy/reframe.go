package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedEncoding is returned for a content coding that cannot be decoded.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// isChunked reports whether the upstream used chunked transfer framing.
func isChunked(resp *http.Response) bool {
	for _, te := range resp.TransferEncoding {
		if strings.EqualFold(te, "chunked") {
			return true
		}
	}
	return false
}

// reframe turns a fully read chunked response into a fixed-length one.
// Transfer-Encoding is dropped, an encoded body is decoded and Content-Encoding
// dropped with it, and Content-Length is set to the length of the returned
// body. When decoding fails the raw body and its Content-Encoding are kept.
func reframe(header http.Header, body []byte) ([]byte, error) {
	header.Del("Transfer-Encoding")

	var decodeErr error
	if encodings := getEncodings(header.Values("Content-Encoding")); len(encodings) > 0 {
		decoded, err := decodeBody(body, encodings)
		if err != nil {
			decodeErr = err
		} else {
			header.Del("Content-Encoding")
			body = decoded
		}
	}

	header.Set("Content-Length", strconv.Itoa(len(body)))
	return body, decodeErr
}

func getEncodings(values []string) []string {
	var encs []string
	for _, v := range values {
		for _, e := range strings.Split(v, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				encs = append(encs, e)
			}
		}
	}
	return encs
}

// decodeBody undoes encodings, listed in the order they were applied.
func decodeBody(body []byte, encodings []string) ([]byte, error) {
	for i := len(encodings) - 1; i >= 0; i-- {
		decoded, err := decodeOne(body, encodings[i])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", encodings[i], err)
		}
		body = decoded
	}
	return body, nil
}

func decodeOne(body []byte, enc string) ([]byte, error) {
	switch enc {
	case "identity":
		return body, nil

	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return io.ReadAll(r)

	case "deflate":
		// HTTP deflate is zlib-wrapped, but raw deflate streams are common.
		if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer func() { _ = r.Close() }()
			return io.ReadAll(r)
		}
		r := flate.NewReader(bytes.NewReader(body))
		defer func() { _ = r.Close() }()
		return io.ReadAll(r)

	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))

	case "zstd":
		d, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return io.ReadAll(d)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
}
