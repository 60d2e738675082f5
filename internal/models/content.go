package models

import "time"

// Career is an open position.
type Career struct {
	ID               string   `json:"_id"`
	Title            string   `json:"title"`
	Overview         string   `json:"overview,omitempty"`
	Location         string   `json:"location"`
	Experience       string   `json:"experience,omitempty"`
	Degree           string   `json:"degree,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

func (c Career) EntityID() string { return c.ID }

// JobApplication is a candidate's application to a Career.
type JobApplication struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"location,omitempty"`
	Position  string    `json:"position,omitempty"`
	Career    Ref       `json:"careerId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a JobApplication) EntityID() string     { return a.ID }
func (a JobApplication) EntityStatus() string { return a.Status }

// BlogPost is a post submitted for the blog. New posts wait in "pending"
// until approved.
type BlogPost struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Excerpt   string    `json:"exerpt,omitempty"`
	Content   string    `json:"content"`
	Images    []string  `json:"images,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b BlogPost) EntityID() string     { return b.ID }
func (b BlogPost) EntityStatus() string { return b.Status }

// Comment is a reader comment on a BlogPost, moderated like posts.
type Comment struct {
	ID        string    `json:"_id"`
	BlogID    string    `json:"blogId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Comment   string    `json:"comment"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Comment) EntityID() string     { return c.ID }
func (c Comment) EntityStatus() string { return c.Status }

// Testimonial is a customer quote shown on the about page.
type Testimonial struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	Content     string `json:"content"`
	Image       string `json:"image,omitempty"`
}

func (t Testimonial) EntityID() string { return t.ID }

// ContactMessage is a submission from the public contact form.
type ContactMessage struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c ContactMessage) EntityID() string { return c.ID }

// AdminProfile is the signed in administrator.
type AdminProfile struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats are the dashboard counters.
type Stats struct {
	Images       int `json:"images"`
	Courses      int `json:"courses"`
	Services     int `json:"services"`
	Blogs        int `json:"blogs"`
	Testimonials int `json:"testimonials"`
	Comments     int `json:"comments"`
	Contacts     int `json:"contacts"`
	Users        int `json:"users"`
}
