package ocr

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

const header = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsv(rows ...string) []byte {
	return []byte(header + "\n" + strings.Join(rows, "\n") + "\n")
}

// Two rows on a 300 DPI image: a VAV schedule title and one schedule row,
// deliberately listed out of reading order.
var scheduleTSV = tsv(
	"1\t1\t0\t0\t0\t0\t0\t0\t2550\t3300\t-1\t",
	"5\t1\t2\t1\t1\t2\t400\t600\t150\t40\t91.5\t500",
	"5\t1\t2\t1\t1\t1\t100\t605\t200\t40\t95\tVAV-1",
	"5\t1\t1\t1\t1\t2\t300\t300\t300\t50\t96\tSCHEDULE",
	"5\t1\t1\t1\t1\t1\t100\t300\t150\t50\t97\tVAV",
	"5\t1\t3\t1\t1\t1\t100\t900\t150\t40\t12\tq~",
	"5\t1\t3\t1\t1\t2\t300\t900\t400\t10\t88\t------",
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error

	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	f.name, f.args = name, args
	if stdin != nil {
		f.stdin, _ = io.ReadAll(stdin)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.stdout, f.stderr, f.err
}

func TestParseTSV(t *testing.T) {
	words, err := ParseTSV(scheduleTSV)
	require.NoError(t, err)
	require.Len(t, words, 6)

	assert.Equal(t, Word{Text: "500", Left: 400, Top: 600, Width: 150, Height: 40, Confidence: 91.5}, words[0])
	assert.Equal(t, "VAV-1", words[1].Text)
}

func TestParseTSVRequiresHeader(t *testing.T) {
	_, err := ParseTSV([]byte("level\tleft\ttop\n5\t1\t2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width")

	words, err := ParseTSV(nil)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestAssemble(t *testing.T) {
	words, err := ParseTSV(scheduleTSV)
	require.NoError(t, err)

	res := Assemble(words, 3, 300, 30)

	assert.Equal(t, []string{"VAV SCHEDULE", "VAV-1 500"}, res.Lines)
	assert.Equal(t, "VAV SCHEDULE\nVAV-1 500", res.Text)
	assert.Equal(t, 4, res.Words)
	assert.InDelta(t, (91.5+95+96+97)/400, res.Confidence, 1e-9)

	require.Len(t, res.Spans, 4)
	tag := res.Spans[1]
	assert.Equal(t, "VAV-1", tag.Text)
	assert.Equal(t, 3, tag.Page)
	assert.InDelta(t, 24.0, tag.X, 1e-9)
	assert.InDelta(t, 145.2, tag.Y, 1e-9)
	assert.InDelta(t, 72.0, tag.X1, 1e-9)
	assert.InDelta(t, 9.6, tag.FontSize, 1e-9)
}

func TestAssembleNothingKept(t *testing.T) {
	res := Assemble([]Word{{Text: "x", Height: 10, Confidence: 5}}, 0, 300, 30)
	assert.Zero(t, res.Words)
	assert.Empty(t, res.Text)
	assert.Nil(t, res.Spans)
}

func TestEngineRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: scheduleTSV}
	engine := NewEngine(Config{TessdataDir: "/opt/tessdata", OEM: 1, MinConfidence: 30}, nil, WithRunner(runner))

	res, err := engine.Recognize(context.Background(), []byte("png-bytes"), 0, 300)
	require.NoError(t, err)

	assert.Equal(t, "tesseract", runner.name)
	assert.Equal(t, []string{
		"stdin", "stdout", "-l", "eng", "--psm", "11", "--oem", "1",
		"--dpi", "300", "--tessdata-dir", "/opt/tessdata", "tsv",
	}, runner.args)
	assert.Equal(t, []byte("png-bytes"), runner.stdin)
	assert.Equal(t, []string{"VAV SCHEDULE", "VAV-1 500"}, res.Lines)
}

func TestEngineRecognizeErrors(t *testing.T) {
	t.Run("empty image", func(t *testing.T) {
		engine := NewEngine(Config{}, nil, WithRunner(&fakeRunner{}))
		_, err := engine.Recognize(context.Background(), nil, 0, 300)
		assert.ErrorIs(t, err, common.ErrInput)
	})

	t.Run("invalid dpi", func(t *testing.T) {
		engine := NewEngine(Config{}, nil, WithRunner(&fakeRunner{}))
		_, err := engine.Recognize(context.Background(), []byte("png"), 0, 0)
		assert.ErrorIs(t, err, common.ErrInput)
	})

	t.Run("tesseract fails", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Error opening data file eng.traineddata")}
		engine := NewEngine(Config{}, nil, WithRunner(runner))
		_, err := engine.Recognize(context.Background(), []byte("png"), 4, 300)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tesseract page 4")
		assert.Contains(t, err.Error(), "eng.traineddata")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		engine := NewEngine(Config{}, nil, WithRunner(&fakeRunner{stdout: scheduleTSV}))
		_, err := engine.Recognize(ctx, []byte("png"), 0, 300)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bad output", func(t *testing.T) {
		engine := NewEngine(Config{}, nil, WithRunner(&fakeRunner{stdout: []byte("not tsv\n")}))
		_, err := engine.Recognize(context.Background(), []byte("png"), 0, 300)
		assert.Error(t, err)
	})
}
