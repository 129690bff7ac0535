package validation

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/loanlens/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestValidateClientContentType(t *testing.T) {
	for _, allowed := range []string{"text/csv", "TEXT/CSV", "application/csv", "text/plain", "application/octet-stream"} {
		assert.NoError(t, ValidateClientContentType(allowed), allowed)
	}
	for _, rejected := range []string{"application/pdf", "image/png", ""} {
		err := ValidateClientContentType(rejected)
		assert.ErrorIs(t, err, ErrValidationFailed, rejected)
	}
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csvContent := bytes.NewReader([]byte("order_id,principal\nO1,1000\n"))
	detected, err := ValidateFileContentByMagicBytes(csvContent)
	require.NoError(t, err)
	assert.Contains(t, detected, "text/plain")

	// Read pointer is reset for the downstream parser.
	first := make([]byte, 8)
	n, _ := csvContent.Read(first)
	assert.Equal(t, "order_id", string(first[:n]))

	png := bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrestofimage"))
	_, err = ValidateFileContentByMagicBytes(png)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1:A9)":  "'=SUM(A1:A9)",
		"+1234":        "'+1234",
		"-42":          "'-42",
		"@cmd":         "'@cmd",
		"O1":           "O1",
		"":             "",
		"  =indented":  "'  =indented",
		"plain value ": "plain value ",
	}
	for input, want := range cases {
		assert.Equal(t, want, SanitizeForFormulaInjection(input), "input %q", input)
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "O1\tB1\n", StripUnprintable("O1\tB1\n\x00\x07"))
	assert.Equal(t, strings.Repeat("a", 3), StripUnprintable("a\x1ba\x00a"))
}
