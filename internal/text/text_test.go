package text

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func writeTestFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o644))
	return path
}

func TestNewRendererBuildsAtlas(t *testing.T) {
	r, err := NewRenderer(writeTestFont(t), 16)
	require.NoError(t, err)

	assert.Equal(t, atlasSize, r.Atlas.Bounds().Dx())
	assert.NotEmpty(t, r.glyphs)

	// The atlas must contain actual coverage, not stay blank.
	nonzero := 0
	for _, px := range r.Atlas.Pix {
		if px != 0 {
			nonzero++
		}
	}
	assert.Greater(t, nonzero, 100)

	assert.Greater(t, r.LineHeight(1), float32(0))
	var nilRenderer *Renderer
	assert.Equal(t, float32(0), nilRenderer.LineHeight(1))
}

func TestNewRendererMissingFont(t *testing.T) {
	_, err := NewRenderer("/nonexistent/font.ttf", 16)
	assert.Error(t, err)
}

func TestBuildVertices(t *testing.T) {
	r, err := NewRenderer(writeTestFont(t), 16)
	require.NoError(t, err)

	items := []Item{{
		Text:     "fps 60.0",
		Position: [2]float32{10, 10},
		Scale:    1,
		Color:    [4]float32{1, 1, 0, 1},
	}}
	vertices := r.BuildVertices(items, 640, 480)

	// Six vertices per drawable glyph; every rune here has a glyph.
	assert.Len(t, vertices, 6*len("fps 60.0"))
	for _, v := range vertices {
		assert.GreaterOrEqual(t, v.Pos[0], float32(-1))
		assert.LessOrEqual(t, v.Pos[0], float32(1))
		assert.Equal(t, [4]float32{1, 1, 0, 1}, v.Color)
	}
}

func TestBuildVerticesNewline(t *testing.T) {
	r, err := NewRenderer(writeTestFont(t), 16)
	require.NoError(t, err)

	oneLine := r.BuildVertices([]Item{{Text: "ab", Scale: 1}}, 640, 480)
	twoLines := r.BuildVertices([]Item{{Text: "a\nb", Scale: 1}}, 640, 480)
	require.Len(t, twoLines, len(oneLine))

	// The second line's glyph sits lower on screen (smaller clip-space Y).
	assert.Less(t, twoLines[6].Pos[1], oneLine[6].Pos[1])
}
