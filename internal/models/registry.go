package models

import (
	"strings"

	"github.com/wolfeidau/admindash/internal/resource"
)

// Order statuses in workflow order.
const (
	OrderPending   = "pending"
	OrderAccepted  = "accepted"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
)

// Application statuses.
const (
	ApplicationApplied   = "applied"
	ApplicationInterview = "interview"
	ApplicationOffered   = "offered"
	ApplicationRejected  = "rejected"
)

// Moderation statuses shared by blog posts and comments.
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
)

// ActionUpdateTracking attaches a tracking URL to an order.
const ActionUpdateTracking = "update-tracking"

func ProductsConfig() resource.Config[Product] {
	return resource.Config[Product]{
		Name:     "products",
		Path:     "/product",
		Required: []string{"ChemicalName", "CatelogNumber", "CASNumber", "MolecularWeight"},
		SearchFields: func(p Product) []string {
			return []string{p.ChemicalName, p.CatelogNumber, p.CASNumber}
		},
		Columns: []string{"ID", "NAME", "CATALOG", "CAS", "MW", "STOCK"},
		Row: func(p Product) []string {
			return []string{p.ID, p.ChemicalName, p.CatelogNumber, p.CASNumber, p.MolecularWeight.String(), p.Stock()}
		},
	}
}

func OrdersConfig() resource.Config[Order] {
	return resource.Config[Order]{
		Name:        "orders",
		Path:        "/order",
		Statuses:    []string{OrderPending, OrderAccepted, OrderShipped, OrderDelivered},
		StatusStyle: resource.StatusViaAction,
		IDField:     "orderId",
		Actions:     []string{ActionUpdateTracking},
		Ops:         resource.OpList | resource.OpStatus | resource.OpAction,
		SearchFields: func(o Order) []string {
			return []string{o.ID, o.User.Name, o.User.Email}
		},
		Columns: []string{"ID", "CUSTOMER", "EMAIL", "ITEMS", "STATUS", "TRACKING", "CREATED"},
		Row: func(o Order) []string {
			return []string{o.ID, o.User.Name, o.User.Email, itoa(o.Items()), o.Status, o.TrackingURL, shortDate(o.CreatedAt)}
		},
	}
}

func ApplicationsConfig() resource.Config[JobApplication] {
	return resource.Config[JobApplication]{
		Name:     "applications",
		Path:     "/career/applications",
		Statuses: []string{ApplicationApplied, ApplicationInterview, ApplicationOffered, ApplicationRejected},
		Ops:      resource.OpList | resource.OpStatus | resource.OpDelete,
		SearchFields: func(a JobApplication) []string {
			return []string{a.Name, a.Email, a.Position, a.Career.Label()}
		},
		Columns: []string{"ID", "NAME", "EMAIL", "POSITION", "STATUS", "APPLIED"},
		Row: func(a JobApplication) []string {
			position := a.Position
			if position == "" {
				position = a.Career.Label()
			}
			return []string{a.ID, a.Name, a.Email, position, a.Status, shortDate(a.CreatedAt)}
		},
	}
}

func CareersConfig() resource.Config[Career] {
	return resource.Config[Career]{
		Name:     "careers",
		Path:     "/career",
		Required: []string{"title", "location"},
		SearchFields: func(c Career) []string {
			return []string{c.Title, c.Location, c.Degree}
		},
		Columns: []string{"ID", "TITLE", "LOCATION", "EXPERIENCE"},
		Row: func(c Career) []string {
			return []string{c.ID, c.Title, c.Location, c.Experience}
		},
	}
}

func BlogsConfig() resource.Config[BlogPost] {
	return resource.Config[BlogPost]{
		Name:     "blogs",
		Path:     "/blog/admin",
		Required: []string{"title", "content"},
		Statuses: []string{ModerationPending, ModerationApproved},
		Ops:      resource.OpsCRUD | resource.OpStatus,
		SearchFields: func(b BlogPost) []string {
			return []string{b.Title, b.Category, b.Excerpt}
		},
		Columns: []string{"ID", "TITLE", "CATEGORY", "STATUS", "UPDATED"},
		Row: func(b BlogPost) []string {
			return []string{b.ID, b.Title, b.Category, b.Status, shortDate(b.UpdatedAt)}
		},
	}
}

func CommentsConfig() resource.Config[Comment] {
	return resource.Config[Comment]{
		Name:     "comments",
		Path:     "/comment/admin",
		Statuses: []string{ModerationPending, ModerationApproved},
		Ops:      resource.OpList | resource.OpDelete | resource.OpStatus,
		Scopes:   map[string]string{"post": "blogId"},
		SearchFields: func(c Comment) []string {
			return []string{c.Name, c.Email, c.Comment, c.BlogID}
		},
		Columns: []string{"ID", "POST", "NAME", "COMMENT", "STATUS", "CREATED"},
		Row: func(c Comment) []string {
			return []string{c.ID, c.BlogID, c.Name, truncate(c.Comment, 48), c.Status, shortDate(c.CreatedAt)}
		},
	}
}

func TestimonialsConfig() resource.Config[Testimonial] {
	return resource.Config[Testimonial]{
		Name:     "testimonials",
		Path:     "/about/testimonials",
		Required: []string{"name", "content"},
		SearchFields: func(t Testimonial) []string {
			return []string{t.Name, t.Designation, t.Content}
		},
		Columns: []string{"ID", "NAME", "DESIGNATION", "CONTENT"},
		Row: func(t Testimonial) []string {
			return []string{t.ID, t.Name, t.Designation, truncate(t.Content, 48)}
		},
	}
}

func ContactsConfig() resource.Config[ContactMessage] {
	return resource.Config[ContactMessage]{
		Name: "contacts",
		Path: "/contactus",
		Ops:  resource.OpList | resource.OpDelete,
		SearchFields: func(c ContactMessage) []string {
			return []string{c.Name, c.Email, c.Subject, c.Message}
		},
		Columns: []string{"ID", "NAME", "EMAIL", "SUBJECT", "RECEIVED"},
		Row: func(c ContactMessage) []string {
			return []string{c.ID, c.Name, c.Email, c.Subject, shortDate(c.CreatedAt)}
		},
	}
}

func ServicesConfig() resource.Config[Service] {
	return resource.Config[Service]{
		Name:     "services",
		Path:     "/web/services",
		Required: []string{"name", "description"},
		SearchFields: func(s Service) []string {
			return []string{s.Name, s.Description}
		},
		Columns: []string{"ID", "NAME", "DESCRIPTION"},
		Row: func(s Service) []string {
			return []string{s.ID, s.Name, truncate(s.Description, 48)}
		},
	}
}

func CoursesConfig() resource.Config[Course] {
	return resource.Config[Course]{
		Name:     "courses",
		Path:     "/web/courses",
		Required: []string{"title", "description"},
		SearchFields: func(c Course) []string {
			return []string{c.Title, c.Heading, c.Mode}
		},
		Columns: []string{"ID", "TITLE", "DURATION", "MODE", "PRICE"},
		Row: func(c Course) []string {
			return []string{c.ID, c.Title, c.Duration, c.Mode, c.Price.String()}
		},
	}
}

func ImagesConfig() resource.Config[Image] {
	return resource.Config[Image]{
		Name:     "images",
		Path:     "/web/images",
		Required: []string{"title", "image"},
		SearchFields: func(i Image) []string {
			return []string{i.Title, i.Alt, i.Category}
		},
		Columns: []string{"ID", "TITLE", "CATEGORY", "IMAGE"},
		Row: func(i Image) []string {
			return []string{i.ID, i.Title, i.Category, i.Image}
		},
	}
}

// Descriptor is the type erased description of a resource, shared by the
// CLI (to open tables) and the dev server (to mount routes).
type Descriptor struct {
	Name        string
	Path        string
	Required    []string
	Statuses    []string
	StatusStyle resource.StatusStyle
	StatusField string
	IDField     string
	Actions     []string
	Ops         resource.Ops
	Scopes      map[string]string // parent name -> document field

	open func(resource.Transport) resource.Controller
}

// Open returns a fresh controller for the resource backed by transport.
func (d Descriptor) Open(transport resource.Transport) resource.Controller {
	return d.open(transport)
}

// Singular is the name used for one entity, e.g. "product".
func (d Descriptor) Singular() string {
	return strings.TrimSuffix(d.Name, "s")
}

func define[T resource.Entity](cfg resource.Config[T]) Descriptor {
	cfg = cfg.WithDefaults()
	return Descriptor{
		Name:        cfg.Name,
		Path:        cfg.Path,
		Required:    cfg.Required,
		Statuses:    cfg.Statuses,
		StatusStyle: cfg.StatusStyle,
		StatusField: cfg.StatusField,
		IDField:     cfg.IDField,
		Actions:     cfg.Actions,
		Ops:         cfg.Ops,
		Scopes:      cfg.Scopes,
		open: func(transport resource.Transport) resource.Controller {
			return resource.Bind(resource.NewTable(cfg, transport))
		},
	}
}

// Resources lists every managed resource in dashboard order.
func Resources() []Descriptor {
	return []Descriptor{
		define(ProductsConfig()),
		define(OrdersConfig()),
		define(ApplicationsConfig()),
		define(CareersConfig()),
		define(BlogsConfig()),
		define(CommentsConfig()),
		define(TestimonialsConfig()),
		define(ContactsConfig()),
		define(ServicesConfig()),
		define(CoursesConfig()),
		define(ImagesConfig()),
	}
}

// Lookup finds a resource by name, case insensitively. A singular name is
// accepted too.
func Lookup(name string) (Descriptor, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range Resources() {
		if d.Name == name || d.Singular() == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names lists resource names in dashboard order.
func Names() []string {
	descriptors := Resources()
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	return names
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
