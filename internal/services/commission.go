package services

import (
	"github.com/shopspring/decimal"

	"marketplacetg/internal/domain"
)

// PlatformRate is the platform's share of every order line. The seller
// receives the rest.
var PlatformRate = decimal.RequireFromString("0.10")

// SplitLine divides one line total between platform and seller.
func SplitLine(total decimal.Decimal) domain.Split {
	platform := total.Mul(PlatformRate)
	return domain.Split{Platform: platform, Seller: total.Sub(platform)}
}

// Calculation is the priced form of a cart: order lines with their shares
// and the aggregate.
type Calculation struct {
	Items []domain.OrderItem
	Total decimal.Decimal
	Split domain.Split
}

// Calculate prices cart lines at their snapshot price. It does not touch
// stock or storage.
func Calculate(lines []domain.CartLine) Calculation {
	c := Calculation{
		Items: make([]domain.OrderItem, 0, len(lines)),
		Total: decimal.Zero,
		Split: domain.Split{Platform: decimal.Zero, Seller: decimal.Zero},
	}
	for i, l := range lines {
		lineTotal := l.Total()
		sp := SplitLine(lineTotal)
		c.Items = append(c.Items, domain.OrderItem{
			LineNo:     i + 1,
			ProductID:  l.ProductID,
			SellerID:   l.SellerID,
			SellerName: l.SellerName,
			Name:       l.Name,
			ImageURL:   l.ImageURL,
			Price:      l.Price,
			Quantity:   l.Quantity,
			Options:    l.Options,
			Platform:   sp.Platform,
			Seller:     sp.Seller,
		})
		c.Total = c.Total.Add(lineTotal)
		c.Split.Platform = c.Split.Platform.Add(sp.Platform)
	}
	c.Split.Seller = c.Total.Sub(c.Split.Platform)
	return c
}
