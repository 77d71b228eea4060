package types

type NavbarData struct {
	IsAuthenticated bool
	UserID          string
	UserEmail       string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Navbar NavbarData
	Notice string
	Error  string
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

type LoginPageData struct {
	BasePageData
	Email     string
	Confirmed bool
}

type RegisterPageData struct {
	BasePageData
	GivenName   string
	FamilyName  string
	Email       string
	FieldErrors map[string]string
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email string
}

type DashboardPageData struct {
	BasePageData
	Links              []*DashboardLink
	Submissions        []*FormSubmission
	DefaultExpiryHours uint
}

// DashboardLink is a FormLink as the advisor sees it, with the status
// evaluated against the current time.
type DashboardLink struct {
	*FormLink
	CurrentStatus LinkStatus
	FormURL       string
}

type TerminalPageData struct {
	BasePageData
	Heading string
	Message string
}
