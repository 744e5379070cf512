package attachment_test

import (
	"testing"

	"healthtrack/internal/attachment"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *attachment.KeyCodec {
	t.Helper()
	codec, err := attachment.NewKeyCodec(testBaseURL)
	require.NoError(t, err)
	return codec
}

func TestNewKeyCodecRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := attachment.NewKeyCodec("/health-records")
	require.Error(t, err)

	_, err = attachment.NewKeyCodec("://bad")
	require.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{name: "plain", fileName: "report.pdf", want: "events/evt-1/report.pdf"},
		{name: "directory stripped", fileName: "scans/2025/report.pdf", want: "events/evt-1/report.pdf"},
		{name: "windows path stripped", fileName: `C:\Users\me\report.pdf`, want: "events/evt-1/report.pdf"},
		{name: "spaces kept", fileName: "blood work.pdf", want: "events/evt-1/blood work.pdf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, codec.DeriveKey("evt-1", tc.fileName))
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, name := range []string{"report.pdf", "blood work.pdf", "x-ray #2.png", "50%.txt", "résumé.pdf", "what?.jpg"} {
		key := codec.DeriveKey("evt-9", name)
		fileURL := codec.FileURL(key)

		got, ok := codec.ParseKey(fileURL)
		require.Truef(t, ok, "ParseKey(%q) not recognized", fileURL)
		require.Equalf(t, key, got, "round trip of %q", name)
	}
}

func TestParseKeyRejectsForeignURLs(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "unrelated host", url: "https://unrelated-host/file.pdf"},
		{name: "not ours", url: "https://example.com/not-ours.pdf"},
		{name: "other scheme", url: "http://s3.test.local/health-records/events/evt-1/a.pdf"},
		{name: "other bucket", url: "https://s3.test.local/other-bucket/events/evt-1/a.pdf"},
		{name: "bucket prefix only", url: "https://s3.test.local/health-records-2/events/evt-1/a.pdf"},
		{name: "outside namespace", url: "https://s3.test.local/health-records/avatars/u1.png"},
		{name: "missing file name", url: "https://s3.test.local/health-records/events/evt-1/"},
		{name: "missing owner", url: "https://s3.test.local/health-records/events//a.pdf"},
		{name: "garbage", url: "%%%"},
		{name: "parent segment", url: "https://s3.test.local/health-records/events/evt-1/../evt-2/a.pdf"},
		{name: "encoded parent segment", url: "https://s3.test.local/health-records/events/evt-1/%2e%2e/evt-2/a.pdf"},
		{name: "dot owner", url: "https://s3.test.local/health-records/events/./a.pdf"},
		{name: "empty inner segment", url: "https://s3.test.local/health-records/events/evt-1//a.pdf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := codec.ParseKey(tc.url)
			require.False(t, ok)
			require.Empty(t, key)
		})
	}
}

func TestParseKeyIgnoresQueryString(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	key, ok := codec.ParseKey(testBaseURL + "/events/evt-1/report.pdf?X-Amz-Signature=abc")
	require.True(t, ok)
	require.Equal(t, "events/evt-1/report.pdf", key)
}

func TestParseKeyHostIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	key, ok := codec.ParseKey("https://S3.Test.Local/health-records/events/evt-1/report.pdf")
	require.True(t, ok)
	require.Equal(t, "events/evt-1/report.pdf", key)
}

func TestOwnsKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tests := []struct {
		key  string
		want bool
	}{
		{key: "events/evt-1/report.pdf", want: true},
		{key: "events/evt-1/blood work.pdf", want: true},
		{key: "events/evt-10/report.pdf", want: false},
		{key: "events/evt-2/report.pdf", want: false},
		{key: "events/evt-1/../evt-2/report.pdf", want: false},
		{key: "events/evt-1/./report.pdf", want: false},
		{key: "events/evt-1/", want: false},
		{key: "events/evt-1", want: false},
		{key: "avatars/evt-1/report.pdf", want: false},
	}

	for _, tc := range tests {
		require.Equalf(t, tc.want, codec.OwnsKey("evt-1", tc.key), "OwnsKey(%q)", tc.key)
	}
}
