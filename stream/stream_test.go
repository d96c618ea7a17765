package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader serves data in fixed-size chunks to exercise arbitrary
// I/O boundaries.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data)-r.pos {
		n = len(r.data) - r.pos
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func collectLines(t *testing.T, s *Stream[string]) []string {
	t.Helper()
	var lines []string
	for {
		line, err := s.Next()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestLinesSplitsOnLFAndCRLF(t *testing.T) {
	src := io.NopCloser(strings.NewReader("alpha\r\nbeta\ngamma"))
	s := Decode(context.Background(), src, Lines())

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, collectLines(t, s))
}

func TestLinesBareCRIsNotATerminator(t *testing.T) {
	src := io.NopCloser(strings.NewReader("al\rpha\nbeta\r\n"))
	s := Decode(context.Background(), src, Lines())

	assert.Equal(t, []string{"al\rpha", "beta"}, collectLines(t, s))
}

func TestLinesFlushesRemainderOnce(t *testing.T) {
	src := io.NopCloser(strings.NewReader("no terminator"))
	s := Decode(context.Background(), src, Lines())

	line, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "no terminator", line)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLinesEmptySource(t *testing.T) {
	s := Decode(context.Background(), io.NopCloser(strings.NewReader("")), Lines())
	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkBoundaryIndependence(t *testing.T) {
	input := "first\r\nsecond\nthird line with more text\r\n\nfifth"
	want := []string{"first", "second", "third line with more text", "", "fifth"}

	for _, size := range []int{1, 2, 3, 5, 7, 16, len(input)} {
		s := Decode(context.Background(), &chunkReader{data: []byte(input), size: size}, Lines())
		assert.Equal(t, want, collectLines(t, s), "chunk size %d", size)
	}
}

func TestRecordsSkipsBlankLines(t *testing.T) {
	type record struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}

	src := io.NopCloser(strings.NewReader("{\"level\":\"info\",\"message\":\"hi\"}\n\n   \n"))
	s := Decode(context.Background(), src, Records[record]())

	rec, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "info", rec.Level)
	assert.Equal(t, "hi", rec.Message)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRecordsDecodeFailureIsTerminal(t *testing.T) {
	type record struct {
		Level string `json:"level"`
	}

	src := &closeRecorder{Reader: strings.NewReader("{\"level\":\"info\"}\nnot json\n")}
	s := Decode(context.Background(), src, Records[record]())

	_, err := s.Next()
	require.NoError(t, err)

	_, err = s.Next()
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "not json", de.Line)
	assert.True(t, src.closed)

	// the error is sticky
	_, again := s.Next()
	assert.Equal(t, err, again)
}

func TestLinesFuncSkips(t *testing.T) {
	decode := func(line string) (string, bool, error) {
		if line == "" || strings.HasPrefix(line, "#") {
			return "", false, nil
		}
		return strings.ToUpper(line), true, nil
	}

	src := io.NopCloser(strings.NewReader("# comment\none\n\ntwo\n"))
	s := Decode(context.Background(), src, LinesFunc(decode))

	assert.Equal(t, []string{"ONE", "TWO"}, collectLines(t, s))
}

func TestCancellationEndsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &closeRecorder{Reader: strings.NewReader("one\ntwo\nthree\n")}
	s := Decode(ctx, src, Lines())

	line, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	cancel()
	_, err = s.Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, src.closed)

	_, again := s.Next()
	assert.ErrorIs(t, again, context.Canceled)
}

func TestSourceFaultPropagates(t *testing.T) {
	boom := errors.New("connection dropped")
	src := io.NopCloser(io.MultiReader(
		strings.NewReader("one\n"),
		&failingReader{err: boom},
	))
	s := Decode(context.Background(), src, Lines())

	line, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	_, err = s.Next()
	assert.ErrorIs(t, err, boom)
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestCloseEndsStream(t *testing.T) {
	src := &closeRecorder{Reader: strings.NewReader("one\ntwo\n")}
	s := Decode(context.Background(), src, Lines())

	require.NoError(t, s.Close())
	assert.True(t, src.closed)

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}
