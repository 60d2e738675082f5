package models

import (
	"strconv"
	"time"
)

// Product is a catalogue chemical.
type Product struct {
	ID              string `json:"_id"`
	ChemicalName    string `json:"ChemicalName"`
	CatelogNumber   string `json:"CatelogNumber"`
	CASNumber       string `json:"CASNumber"`
	MolecularWeight Text   `json:"MolecularWeight"`
	InStock         bool   `json:"inStock"`
	Image           string `json:"image,omitempty"`
}

func (p Product) EntityID() string { return p.ID }

// Stock renders availability the way the products table shows it.
func (p Product) Stock() string {
	if p.InStock {
		return "in stock"
	}
	return "out of stock"
}

// Order is a customer order. Orders are never created or edited from the
// dashboard, only moved through their workflow and given tracking.
type Order struct {
	ID          string      `json:"_id"`
	User        OrderUser   `json:"user"`
	Products    []OrderLine `json:"products,omitempty"`
	Status      string      `json:"status"`
	TrackingURL string      `json:"trackingURL,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type OrderUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderLine struct {
	Product  Ref `json:"product"`
	Quantity int `json:"quantity"`
}

func (o Order) EntityID() string     { return o.ID }
func (o Order) EntityStatus() string { return o.Status }

// Items is the total quantity across order lines.
func (o Order) Items() int {
	n := 0
	for _, line := range o.Products {
		n += line.Quantity
	}
	return n
}

// Service is an offered lab service.
type Service struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Process     []string `json:"process,omitempty"`
	Benefits    []string `json:"benefits,omitempty"`
}

func (s Service) EntityID() string { return s.ID }

// Course is a training course.
type Course struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Heading     string `json:"heading,omitempty"`
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Price       Text   `json:"price,omitempty"`
	CoverImage  string `json:"coverImage,omitempty"`
}

func (c Course) EntityID() string { return c.ID }

// Image is a gallery image.
type Image struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Alt      string `json:"alt,omitempty"`
	Image    string `json:"image"`
	Category string `json:"category,omitempty"`
}

func (i Image) EntityID() string { return i.ID }

func itoa(n int) string { return strconv.Itoa(n) }

func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
