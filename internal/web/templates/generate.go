package templates

//go:generate templ generate
