package servicetitan

import (
	"context"
	"strconv"
	"strings"

	"sales_command_center/platform/apperr"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ResolveTagTypeID resolves a tag name to its numeric ID, matching
// case-insensitively. The tag catalog is fetched once per client and cached;
// tag definitions change rarely enough that a process restart is an
// acceptable refresh.
func (c *Client) ResolveTagTypeID(ctx context.Context, name string) (int64, error) {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	if c.tagTypes == nil {
		tags, err := getAll[TagType](ctx, c, "fetch_tag_types", c.tenantPath("settings/v2", "tag-types"), nil)
		if err != nil {
			return 0, err
		}
		c.tagTypes = make(map[string]int64, len(tags))
		for _, tag := range tags {
			c.tagTypes[strings.ToLower(tag.Name)] = tag.ID
		}
	}

	id, ok := c.tagTypes[strings.ToLower(name)]
	if !ok {
		return 0, apperr.Upstream("tag type not found: " + name).WithOp("resolve_tag_type")
	}
	return id, nil
}
