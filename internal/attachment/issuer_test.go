package attachment_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"healthtrack/internal/attachment"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   attachment.UploadRequest
		field string
	}{
		{name: "empty file name", req: attachment.UploadRequest{FileName: "", ContentType: "application/pdf", Size: 1}, field: "fileName"},
		{name: "dot file name", req: attachment.UploadRequest{FileName: "..", ContentType: "application/pdf", Size: 1}, field: "fileName"},
		{name: "bad content type", req: attachment.UploadRequest{FileName: "a.bin", ContentType: "invalid/type", Size: 1}, field: "contentType"},
		{name: "empty content type", req: attachment.UploadRequest{FileName: "a.bin", ContentType: "", Size: 1}, field: "contentType"},
		{name: "negative size", req: attachment.UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Size: -1}, field: "size"},
		{name: "one byte over", req: attachment.UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Size: 10485761}, field: "size"},
		{name: "first failure wins", req: attachment.UploadRequest{FileName: "", ContentType: "invalid/type", Size: -1}, field: "fileName"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := attachment.Validate(tc.req)
			var verr *attachment.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
			require.Contains(t, verr.Message, tc.field)
		})
	}
}

func TestValidateAcceptsBoundaries(t *testing.T) {
	t.Parallel()

	for _, ct := range attachment.AllowedContentTypes() {
		require.NoError(t, attachment.Validate(attachment.UploadRequest{FileName: "f", ContentType: ct, Size: 0}))
	}
	require.NoError(t, attachment.Validate(attachment.UploadRequest{
		FileName: "big.pdf", ContentType: "application/pdf", Size: attachment.MaxFileSize,
	}))
}

func TestContentTypeMessageListsAllowedTypes(t *testing.T) {
	t.Parallel()

	err := attachment.Validate(attachment.UploadRequest{FileName: "a", ContentType: "invalid/type", Size: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "application/pdf")
	require.Contains(t, err.Error(), "image/heic")
}

func TestIssue(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	issuer := attachment.NewIssuer(store, newTestCodec(t))

	before := time.Now()
	auth, err := issuer.Issue(context.Background(), "evt-1", attachment.UploadRequest{
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Size:        204800,
	})
	require.NoError(t, err)

	require.Equal(t, "events/evt-1/report.pdf", auth.Key)
	require.Equal(t, testBaseURL+"/events/evt-1/report.pdf", auth.FileURL)
	require.True(t, strings.HasPrefix(auth.UploadURL, testBaseURL+"/events/evt-1/report.pdf?"))
	require.Equal(t, int64(10485760), auth.MaxSize)
	require.ElementsMatch(t, attachment.AllowedContentTypes(), auth.AllowedContentTypes)
	require.WithinDuration(t, before.Add(15*time.Minute), auth.ExpiresAt, 5*time.Second)

	require.Equal(t, attachment.UploadURLTTL, store.lastUploadTTL)
	require.Equal(t, "application/pdf", store.lastContentType)
}

func TestIssueIsPure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	issuer := attachment.NewIssuer(store, newTestCodec(t))
	req := attachment.UploadRequest{FileName: "scan.png", ContentType: "image/png", Size: 10}

	first, err := issuer.Issue(context.Background(), "evt-2", req)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), "evt-2", req)
	require.NoError(t, err)

	require.Equal(t, first.Key, second.Key)
	require.Equal(t, first.FileURL, second.FileURL)
	require.Empty(t, store.objects)
	require.Empty(t, store.deleteCalls)
	require.Zero(t, store.headCalls)
}

func TestIssueRejectsBeforeSigning(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	issuer := attachment.NewIssuer(store, newTestCodec(t))

	_, err := issuer.Issue(context.Background(), "evt-1", attachment.UploadRequest{
		FileName: "huge.pdf", ContentType: "application/pdf", Size: 10485761,
	})
	var verr *attachment.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "size", verr.Field)
	require.Zero(t, store.calls())
}

func TestIssueSigningFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.signUploadErr = errors.New("credentials expired")
	issuer := attachment.NewIssuer(store, newTestCodec(t))

	_, err := issuer.Issue(context.Background(), "evt-1", attachment.UploadRequest{
		FileName: "report.pdf", ContentType: "application/pdf", Size: 1,
	})
	var uerr *attachment.UpstreamStorageError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "events/evt-1/report.pdf", uerr.Key)
	require.ErrorIs(t, err, store.signUploadErr)
}
