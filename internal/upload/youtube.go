package upload

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// YouTubeBackend publishes rendered clips as YouTube Shorts via the Data API
// resumable upload.
type YouTubeBackend struct{}

// NewYouTubeBackend creates the backend.
func NewYouTubeBackend() *YouTubeBackend {
	return &YouTubeBackend{}
}

// Publish uploads the clip file and returns the remote video id.
func (b *YouTubeBackend) Publish(ctx context.Context, filePath string, clip *types.Clip, token *oauth2.Token) (string, error) {
	if filePath == "" {
		return "", &UploadError{Err: fmt.Errorf("clip has no rendered output file")}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("video file not found: %v", err)}
	}
	defer file.Close()

	service, err := youtube.NewService(ctx,
		option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("failed to create publish service: %v", err)}
	}

	title := clip.Title
	if title == "" {
		title = "YouTube Short " + clip.ID
	}
	tags := clip.Tags
	if len(tags) == 0 {
		tags = []string{"shorts", "viral"}
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          clip.Description,
			Tags:                 tags,
			CategoryId:           "22", // People & Blogs
			DefaultLanguage:      "en",
			DefaultAudioLanguage: "en",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			MadeForKids:             false,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && (apiErr.Code == 401 || apiErr.Code == 403) {
			return "", &AuthError{Err: err}
		}
		return "", &UploadError{Err: err}
	}
	if response.Id == "" {
		return "", &UploadError{Err: fmt.Errorf("upload returned no video id")}
	}

	return response.Id, nil
}
