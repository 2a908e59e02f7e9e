package common

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestS3_PutPublic(t *testing.T) {
	ctx := context.Background()

	t.Run("VirtualHostedURL", func(t *testing.T) {
		fake := &fakeS3{}
		store := newS3(fake, S3Config{Bucket: "media", Prefix: "images/"}, "eu-west-1")

		url, err := store.PutPublic(ctx, "/item-1/job 1.png", []byte("png"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/images/item-1/job%201.png", url)

		require.Len(t, fake.puts, 1)
		in := fake.puts[0]
		assert.Equal(t, "media", aws.ToString(in.Bucket))
		assert.Equal(t, "images/item-1/job 1.png", aws.ToString(in.Key))
		assert.Equal(t, "image/png", aws.ToString(in.ContentType))
		assert.Equal(t, s3types.ObjectCannedACLPublicRead, in.ACL)
		assert.Equal(t, int64(3), aws.ToInt64(in.ContentLength))
		assert.Equal(t, []byte("png"), fake.body)
	})

	t.Run("PublicBaseURL", func(t *testing.T) {
		store := newS3(&fakeS3{}, S3Config{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"}, "us-east-1")
		url, err := store.PutPublic(ctx, "a.png", []byte("x"), "")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", url)
	})

	t.Run("PathStyle", func(t *testing.T) {
		store := newS3(&fakeS3{}, S3Config{Bucket: "media", UsePathStyle: true}, "us-east-2")
		assert.Equal(t, "https://s3.us-east-2.amazonaws.com/media/a.png", store.PublicURL("a.png"))

		noRegion := newS3(&fakeS3{}, S3Config{Bucket: "media"}, "")
		assert.Equal(t, "https://s3.amazonaws.com/media/a.png", noRegion.PublicURL("a.png"))
	})

	t.Run("APIErrorCodeInMessage", func(t *testing.T) {
		apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
		store := newS3(&fakeS3{err: apiErr}, S3Config{Bucket: "media"}, "us-east-1")

		_, err := store.PutPublic(ctx, "a.png", []byte("x"), "image/png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AccessDenied")
		var target smithy.APIError
		assert.True(t, errors.As(err, &target))
	})
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	require.Error(t, err)
}
