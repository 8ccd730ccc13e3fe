package wldriver

func (c *Client) HasObject(id uint32) bool {
	_, ok := c.objects[id]
	return ok
}
