package wire

import (
	"errors"
	"io"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/delim"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/valyala/bytebufferpool"
)

// ReadHeaderBlock reads from the client until the blank line terminating the headers is met.
// The block, terminator included, is appended to the buffer. Bytes read past the terminator
// are given back to the client.
//
// status.ErrPeerClosed is returned if the connection was closed before anything was sent,
// status.ErrIncompleteHeaders if it was closed in the middle of the block.
func ReadHeaderBlock(client transport.Client, maxSize int, buff *bytebufferpool.ByteBuffer) error {
	m := delim.Blocks.Acquire()
	defer delim.Blocks.Release(m)

	start := buff.Len()
	err := readBlock(client, maxSize, buff, m)
	if errors.Is(err, io.EOF) {
		if buff.Len() == start {
			return status.ErrPeerClosed
		}

		return status.ErrIncompleteHeaders
	}

	return err
}

// ReadTrailerBlock reads the trailer section following the terminating zero-length chunk,
// whose CRLF is considered already consumed. So an immediate CRLF completes the block
// holding no fields.
func ReadTrailerBlock(client transport.Client, maxSize int, buff *bytebufferpool.ByteBuffer) error {
	m := delim.Blocks.Acquire()
	defer delim.Blocks.Release(m)

	m.Feed(delim.CRLF)

	err := readBlock(client, maxSize, buff, m)
	if errors.Is(err, io.EOF) {
		return status.ErrTruncatedBody
	}

	return err
}

func readBlock(
	client transport.Client, maxSize int, buff *bytebufferpool.ByteBuffer, m *delim.Matcher,
) error {
	for {
		data, err := client.Read()
		if len(data) == 0 {
			if err != nil {
				return err
			}

			continue
		}

		if end := m.Find(data); end != -1 {
			if buff.Len()+end+1 > maxSize {
				return status.ErrHeaderFieldsTooLarge
			}

			buff.B = append(buff.B, data[:end+1]...)
			client.Unread(data[end+1:])

			return nil
		}

		if buff.Len()+len(data) > maxSize {
			return status.ErrHeaderFieldsTooLarge
		}

		buff.B = append(buff.B, data...)
	}
}
