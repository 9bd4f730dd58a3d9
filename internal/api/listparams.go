package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/store"
)

// parseListParams translates the page/page_size/ordering/filter query
// convention of §6 into a store.ListParams. filterFields names the query
// parameters treated as equality filters; everything else is ignored.
func parseListParams(c *gin.Context, filterFields []string) store.ListParams {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if page < 1 {
		page = 1
	}
	limit := pageSize
	offset := (page - 1) * pageSize

	orderBy := ""
	orderDir := "asc"
	if ordering := c.Query("ordering"); ordering != "" {
		orderBy = ordering
		if strings.HasPrefix(ordering, "-") {
			orderBy = strings.TrimPrefix(ordering, "-")
			orderDir = "desc"
		}
	}

	filters := make(map[string]any, len(filterFields))
	for _, f := range filterFields {
		if v := c.Query(f); v != "" {
			filters[f] = v
		}
	}

	return store.ListParams{
		Filters:  filters,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Limit:    limit,
		Offset:   offset,
	}
}
