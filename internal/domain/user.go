package domain

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool { return r == RoleBuyer || r == RoleSeller || r == RoleAdmin }

type User struct {
	ID              string  `db:"id" json:"id"`
	Email           string  `db:"email" json:"email"`
	FirstName       string  `db:"first_name" json:"firstName"`
	LastName        string  `db:"last_name" json:"lastName"`
	Phone           string  `db:"phone" json:"phone,omitempty"`
	Hash            string  `db:"password_hash" json:"-"`
	Role            Role    `db:"role" json:"userType"`
	Active          bool    `db:"active" json:"isActive"`
	ShopName        string  `db:"shop_name" json:"shopName,omitempty"`
	ShopDescription string  `db:"shop_description" json:"shopDescription,omitempty"`
	ShopRating      float64 `db:"shop_rating" json:"shopRating,omitempty"`
	TotalProducts   int     `db:"total_products" json:"totalProducts,omitempty"`
	TotalSales      int     `db:"total_sales" json:"totalSales,omitempty"`
	CreatedAt       string  `db:"created_at" json:"createdAt"`
	LastActivity    string  `db:"last_activity" json:"lastActivity,omitempty"`
}

func (u User) DisplayName() string {
	if u.Role == RoleSeller && u.ShopName != "" {
		return u.ShopName
	}
	return u.FirstName + " " + u.LastName
}
