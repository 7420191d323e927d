package commerceml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestNormalizeEncoding(t *testing.T) {
	t.Run("utf-8 passthrough", func(t *testing.T) {
		in := []byte(`<?xml version="1.0" encoding="utf-8"?><a>Да</a>`)
		out, err := NormalizeEncoding(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("undeclared is assumed utf-8", func(t *testing.T) {
		out, err := NormalizeEncoding([]byte("<a>Да</a>"))
		require.NoError(t, err)
		assert.Equal(t, "<a>Да</a>", string(out))
	})

	t.Run("bom stripped", func(t *testing.T) {
		out, err := NormalizeEncoding(append([]byte{0xEF, 0xBB, 0xBF}, "<a/>"...))
		require.NoError(t, err)
		assert.Equal(t, "<a/>", string(out))
	})

	t.Run("windows-1251 converted and declaration rewritten", func(t *testing.T) {
		in, err := charmap.Windows1251.NewEncoder().String(`<?xml version="1.0" encoding='windows-1251'?><a>Привет</a>`)
		require.NoError(t, err)

		out, err := NormalizeEncoding([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><a>Привет</a>`, string(out))
	})

	t.Run("unquoted encoding", func(t *testing.T) {
		in, err := charmap.KOI8R.NewEncoder().String(`<?xml version="1.0" encoding=koi8-r?><a>Мир</a>`)
		require.NoError(t, err)

		out, err := NormalizeEncoding([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><a>Мир</a>`, string(out))
	})
}
