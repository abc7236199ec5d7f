package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecode(t *testing.T) {
	const header = "訂單編號,收件人姓名\n1001,王小明\n"

	big5, err := traditionalchinese.Big5.NewEncoder().String(header)
	require.NoError(t, err)
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(header)
	require.NoError(t, err)
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("订单编号\n")
	require.NoError(t, err)

	tests := []struct {
		name      string
		data      []byte
		encodings []string
		wantText  string
		wantEnc   string
	}{
		{"plain utf-8", []byte(header), nil, header, "utf-8-sig"},
		{"utf-8 bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, header...), nil, header, "utf-8-sig"},
		{"big5 fallback", []byte(big5), nil, header, "cp950"},
		{"utf-16 bom", []byte(utf16), nil, header, "utf-16"},
		{"gbk when listed", []byte(gbk), []string{"utf-8", "gbk"}, "订单编号\n", "gbk"},
		{"unknown labels skipped", []byte(header), []string{"latin-9", "utf8"}, header, "utf8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc, err := Decode(tt.data, tt.encodings)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantEnc, enc)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = Decode([]byte{0xC3, 0x28, 0xFF}, []string{"utf-8"})
	assert.ErrorIs(t, err, ErrUndecodable)

	_, _, err = Decode([]byte{0xEF, 0xBB, 0xBF, 0xFF}, nil)
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"UTF-8-SIG", "cp950", "Big5", "gbk", "gb2312", "gb18030", "utf-16be"} {
		_, ok := LookupEncoding(name)
		assert.True(t, ok, name)
	}
	_, ok := LookupEncoding("ebcdic")
	assert.False(t, ok)
}
