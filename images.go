package openai

import (
	"context"
	"fmt"
	"net/http"
)

// ImageResponseFormat selects how generated images are returned.
type ImageResponseFormat string

const (
	ImageFormatURL        ImageResponseFormat = "url"
	ImageFormatBase64JSON ImageResponseFormat = "b64_json"
)

// Image sizes accepted by the API.
const (
	ImageSize256  = "256x256"
	ImageSize512  = "512x512"
	ImageSize1024 = "1024x1024"
)

// ImageArguments is the request body of POST /images/generations.
type ImageArguments struct {
	Model          string              `json:"model,omitempty"`
	Prompt         string              `json:"prompt"`
	N              *int                `json:"n,omitempty"`
	ResponseFormat ImageResponseFormat `json:"response_format,omitempty"`
	Size           string              `json:"size,omitempty"`
	User           string              `json:"user,omitempty"`
}

// NewImageArguments returns arguments with only the prompt set.
func NewImageArguments(prompt string) ImageArguments {
	return ImageArguments{Prompt: prompt}
}

type imageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// CreateImage generates images from a prompt. It returns one entry per image: a
// URL, or the base64-encoded image when ResponseFormat is ImageFormatBase64JSON.
func (c *Client) CreateImage(ctx context.Context, args ImageArguments) ([]string, error) {
	if args.Model != "" {
		if err := c.validate(&RequestParams{Endpoint: EndpointImages, Model: args.Model, N: args.N}); err != nil {
			return nil, err
		}
	}

	var resp imageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/images/generations", &args, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	images := make([]string, 0, len(resp.Data))
	for i, item := range resp.Data {
		switch {
		case item.URL != "":
			images = append(images, item.URL)
		case item.B64JSON != "":
			images = append(images, item.B64JSON)
		default:
			return nil, fmt.Errorf("image %d has neither url nor b64_json: %w", i, ErrEmptyResponse)
		}
	}
	return images, nil
}
