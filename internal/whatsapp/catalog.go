package whatsapp

import (
	"fmt"
	"strings"

	"github.com/vendazap/platform/internal/products"
)

const (
	catalogPreamble  = "Aqui estão alguns dos nossos produtos:\n\n"
	catalogPostamble = "\n\nGostaria de mais informações sobre algum deles?"
)

// ComposeCatalogMessage renders the catalog push: a fixed Portuguese preamble
// and postamble around one bullet per product, prices with two decimals.
func ComposeCatalogMessage(list []*products.Product) string {
	lines := make([]string, 0, len(list))
	for _, p := range list {
		lines = append(lines, fmt.Sprintf("• %s: R$ %.2f", p.Name, p.Price))
	}
	return catalogPreamble + strings.Join(lines, "\n") + catalogPostamble
}
