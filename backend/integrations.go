package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-merch-storefront/internal/errors"
)

// ZecatScope selects what a catalog sync pulls
type ZecatScope string

const (
	ZecatAll        ZecatScope = "all"
	ZecatCategories ZecatScope = "categories"
	ZecatProducts   ZecatScope = "products"
)

func (s ZecatScope) Valid() bool {
	return s == ZecatAll || s == ZecatCategories || s == ZecatProducts
}

// SyncZecat triggers the third party catalog import
func (c *Client) SyncZecat(ctx context.Context, scope ZecatScope) error {
	if !scope.Valid() {
		return errors.Wrapf(errors.ErrInvalidRequest, "zecat scope %q", scope)
	}
	q := url.Values{"scope": {string(scope)}}
	return c.sendJSON(ctx, http.MethodPost, "/admin/zecat/sync", q, nil, nil)
}
