package core

// View enumerates the storefront screens. The detail view additionally
// requires a selected product that resolves in the current product set; when
// it does not, navigation falls back to home.
type View string

const (
	ViewHome   View = "home"
	ViewDetail View = "detail"
	ViewCart   View = "cart"
	ViewLogin  View = "login"
	ViewAdmin  View = "admin"
)

// ParseView maps an address parameter to a View. Anything outside the
// enumeration, including the empty string, is home; an undefined view is
// never rendered.
func ParseView(s string) View {
	switch View(s) {
	case ViewDetail, ViewCart, ViewLogin, ViewAdmin:
		return View(s)
	default:
		return ViewHome
	}
}
