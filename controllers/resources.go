package controllers

import (
	"context"
	"net/url"
	"strings"

	"eduadmin_go/apiclient"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Resource describes one entity collection of the institute API.
type Resource struct {
	Path     string // "/students"
	Label    string // "Student"
	ItemKey  string // "student", used to unwrap single-entity bodies
	Envelope listing.Envelope

	SearchFields []string
	StatusField  string
	// Exact-match query parameters forwarded to the API and re-applied locally.
	Passthrough []string
}

// ResourceController proxies list/get/create/update/delete for one entity.
type ResourceController[T listing.Record] struct {
	api      *apiclient.Client
	res      Resource
	pageSize int
}

func NewResourceController[T listing.Record](api *apiclient.Client, res Resource, pageSize int) *ResourceController[T] {
	if pageSize < 1 {
		pageSize = listing.DefaultPageSize
	}
	return &ResourceController[T]{api: api, res: res, pageSize: pageSize}
}

// ListQuery builds the listing query from the request's query string:
// page, limit, search, status, sort and the passthrough parameters.
func (rc *ResourceController[T]) ListQuery(c *fiber.Ctx) listing.Query {
	q := listing.Query{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", rc.pageSize),
		Params:   url.Values{},
	}

	if term := strings.TrimSpace(c.Query("search")); term != "" {
		q.Params.Set("search", term)
		q.Filters = append(q.Filters, listing.TextFilter{Fields: rc.res.SearchFields, Term: term})
	}
	if status := strings.TrimSpace(c.Query("status")); rc.res.StatusField != "" && status != "" && status != listing.StatusAll {
		q.Params.Set("status", status)
		q.Filters = append(q.Filters, listing.StatusFilter{Field: rc.res.StatusField, Value: status})
	}
	for _, key := range rc.res.Passthrough {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			q.Params.Set(key, v)
			q.Filters = append(q.Filters, listing.StatusFilter{Field: key, Value: v})
		}
	}
	if sort := c.Query("sort"); sort != "" {
		q.Sort = listing.ParseSortKey(sort)
	}
	return q
}

// List returns one normalized page.
func (rc *ResourceController[T]) List(c *fiber.Ctx) error {
	page := listing.FetchPage[T](c.UserContext(), listing.FromAPI(apiFor(c, rc.api), rc.res.Path), rc.res.Envelope, rc.ListQuery(c))
	return respondPage(c, page)
}

// All walks every page of q. It stops at the first failed page.
func (rc *ResourceController[T]) All(ctx context.Context, api *apiclient.Client, q listing.Query) ([]T, error) {
	q.Page = 1
	return listing.FetchAll[T](ctx, listing.FromAPI(api, rc.res.Path), rc.res.Envelope, q)
}

// Get returns one entity.
func (rc *ResourceController[T]) Get(c *fiber.Ctx) error {
	raw, err := apiFor(c, rc.api).Get(c.UserContext(), rc.itemPath(c), nil)
	if err != nil {
		return respondError(c, err)
	}
	item, err := listing.DecodeOne[T](raw, rc.res.ItemKey)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{rc.res.ItemKey: item})
}

// Create validates the body and POSTs it.
func (rc *ResourceController[T]) Create(c *fiber.Ctx) error {
	var item T
	if err := c.BodyParser(&item); err != nil {
		return respondError(c, invalidBody())
	}
	if err := utils.ValidateStruct(item); err != nil {
		return respondError(c, err)
	}

	raw, err := apiFor(c, rc.api).Post(c.UserContext(), rc.res.Path, item)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, fiber.StatusCreated, rc.res.Label+" created successfully", rc.saved(raw, item))
}

// Update validates the body and PUTs it.
func (rc *ResourceController[T]) Update(c *fiber.Ctx) error {
	var item T
	if err := c.BodyParser(&item); err != nil {
		return respondError(c, invalidBody())
	}
	if err := utils.ValidateStruct(item); err != nil {
		return respondError(c, err)
	}

	raw, err := apiFor(c, rc.api).Put(c.UserContext(), rc.itemPath(c), item)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, fiber.StatusOK, rc.res.Label+" updated successfully", rc.saved(raw, item))
}

// Delete removes one entity.
func (rc *ResourceController[T]) Delete(c *fiber.Ctx) error {
	if _, err := apiFor(c, rc.api).Delete(c.UserContext(), rc.itemPath(c)); err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, fiber.StatusOK, rc.res.Label+" deleted successfully", nil)
}

func (rc *ResourceController[T]) itemPath(c *fiber.Ctx) string {
	return rc.res.Path + "/" + url.PathEscape(c.Params("id"))
}

// saved prefers the entity echoed by the API over what was sent.
func (rc *ResourceController[T]) saved(raw []byte, sent T) T {
	item, err := listing.DecodeOne[T](raw, rc.res.ItemKey)
	if err != nil {
		logrus.WithField("resource", rc.res.Path).WithError(err).Debug("API did not echo the saved entity")
		return sent
	}
	return item
}
