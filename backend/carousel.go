package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

// CarouselImages returns the carousel ordered by slot
func (c *Client) CarouselImages(ctx context.Context) ([]CarouselImage, error) {
	var out []CarouselImage
	if err := c.getJSON(ctx, "/carousel-image", nil, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// UploadCarouselImage stores a new image for a slot and returns its URL
func (c *Client) UploadCarouselImage(ctx context.Context, file File, order int) (string, error) {
	if order < 0 {
		return "", fmt.Errorf("carousel order %d: %w", order, errors.ErrInvalidRequest)
	}
	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	form := Form{
		Fields: map[string]string{"order": strconv.Itoa(order)},
		Files:  map[string][]File{"file": {file}},
	}
	if err := c.sendMultipart(ctx, http.MethodPost, "/carousel-image/upload", form, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

// SaveCarousel replaces the carousel layout. Slots without an image or with a
// negative order are skipped.
func (c *Client) SaveCarousel(ctx context.Context, slots []CarouselSlot) error {
	kept := make([]CarouselSlot, 0, len(slots))
	for _, s := range slots {
		if s.ImageURL == "" || s.Order < 0 {
			continue
		}
		kept = append(kept, s)
	}
	return c.sendJSON(ctx, http.MethodPatch, "/carousel-image/bulk", nil, kept, nil)
}

func (c *Client) DeactivateCarouselImage(ctx context.Context, id FlexID) error {
	path := "/carousel-image/" + url.PathEscape(id.String())
	return c.sendJSON(ctx, http.MethodPatch, path, nil, map[string]bool{"isActive": false}, nil)
}

func (c *Client) DeleteCarouselImage(ctx context.Context, id FlexID) error {
	return c.sendJSON(ctx, http.MethodDelete, "/carousel-image/"+url.PathEscape(id.String()), nil, nil, nil)
}
