package tenants

import (
	"database/sql"

	"github.com/google/uuid"
)

// Context is the explicit tenant handle for one unit of work. Data-access
// code receives it as an argument; it is never stored globally or carried
// between units of work.
type Context struct {
	tenant   Tenant
	db       *sql.DB
	released bool
}

// Tenant returns the activated tenant.
func (c *Context) Tenant() Tenant {
	return c.tenant
}

// ID returns the activated tenant's identifier.
func (c *Context) ID() uuid.UUID {
	return c.tenant.ID
}

// DB returns the tenant's logical database. Panics if the handle has been
// released, which indicates tenant state leaking across units of work.
func (c *Context) DB() *sql.DB {
	if c.released {
		panic("tenants: use of released tenant context")
	}
	return c.db
}

// Release ends the unit of work. The underlying pool is shared and stays
// open; Release only invalidates this handle.
func (c *Context) Release() {
	c.released = true
}
