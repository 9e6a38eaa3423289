package repos

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"marketplacetg/internal/domain"
)

// TimeFormat is fixed width so that timestamps sort lexically.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

func now() string { return time.Now().UTC().Format(TimeFormat) }

func OpenDB(dsn string, seed bool) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway; one connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if !seed {
		return db, nil
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('buyer','seller','admin')),
  active INTEGER NOT NULL DEFAULT 1,
  shop_name TEXT NOT NULL DEFAULT '',
  shop_description TEXT NOT NULL DEFAULT '',
  shop_rating REAL NOT NULL DEFAULT 0,
  total_products INTEGER NOT NULL DEFAULT 0,
  total_sales INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT,
  last_activity TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  remember INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  last_seen TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  seller_name TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  image_url TEXT NOT NULL DEFAULT '',
  images_json TEXT NOT NULL DEFAULT '[]',
  active INTEGER NOT NULL DEFAULT 1,
  rating REAL NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  view_count INTEGER NOT NULL DEFAULT 0,
  sold_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_seller     ON products(seller_id);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_active_new ON products(active, created_at DESC, id DESC);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  platform_amount TEXT NOT NULL,
  seller_amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NULL,
  payment_status TEXT NOT NULL DEFAULT '',
  transaction_id TEXT NOT NULL DEFAULT '',
  paid_amount TEXT NULL,
  payment_date TEXT NOT NULL DEFAULT '',
  shipping_json TEXT NULL,
  tracking_number TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_buyer      ON orders(buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  seller_name TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  options_json TEXT NOT NULL DEFAULT '{}',
  platform_amount TEXT NOT NULL,
  seller_amount TEXT NOT NULL,
  PRIMARY KEY (order_id, line_no)
);
CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id);

-- Commissions
CREATE TABLE IF NOT EXISTS commissions(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  platform_amount TEXT NOT NULL,
  seller_amount TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','paid')),
  created_at TEXT NOT NULL,
  paid_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_commissions_order  ON commissions(order_id);
CREATE INDEX IF NOT EXISTS idx_commissions_seller ON commissions(seller_id, created_at);

-- Payment attempts (checkout flow state per order)
CREATE TABLE IF NOT EXISTS payments(
  order_id TEXT PRIMARY KEY REFERENCES orders(id) ON DELETE CASCADE,
  buyer_id TEXT NOT NULL,
  state TEXT NOT NULL,
  method TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);

-- Per-identity key/value blobs (cart and similar device state)
CREATE TABLE IF NOT EXISTS local_state(
  owner_id TEXT NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (owner_id, key)
);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures demo buyers, sellers and one admin exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, First, Last, Phone, Role, Shop, Hash string
	}
	mk := func(id, email, first, last, phone, role, shop, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, First: first, Last: last, Phone: phone, Role: role, Shop: shop, Hash: string(h)}
	}

	users := []u{
		mk("u-kossi", "kossi@marketplace.tg", "Kossi", "Mensah", "+22890000001", "buyer", "", "Passw0rd!"),
		mk("u-afi", "afi@marketplace.tg", "Afi", "Agbeko", "+22890000002", "buyer", "", "Passw0rd!"),
		mk("u-ama", "ama@marketplace.tg", "Ama", "Lawson", "+22891000001", "seller", "Ama Couture", "Passw0rd!"),
		mk("u-yao", "yao@marketplace.tg", "Yao", "Dossou", "+22891000002", "seller", "Yao Tech", "Passw0rd!"),
		mk("u-admin", "admin@marketplace.tg", "Admin", "TG", "+22899999999", "admin", "", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,first_name,last_name,phone,password_hash,role,shop_name,created_at)
			VALUES(?,?,?,?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.First, x.Last, x.Phone, x.Hash, x.Role, x.Shop, now()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.GetContext(context.Background(), &n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products")

	type p struct {
		ID, Seller, SellerName, Name, Desc, Cat, Price string
		Stock                                          int
	}
	products := []p{
		{"pagne-001", "u-ama", "Ama Couture", "Pagne wax Vlisco", "Pagne wax 6 yards, motifs traditionnels.", "clothing", "12000", 10},
		{"robe-002", "u-ama", "Ama Couture", "Robe kente", "Robe cousue main en tissu kente.", "clothing", "25000", 4},
		{"sac-003", "u-ama", "Ama Couture", "Sac en raphia", "Sac tressé à la main, fabrication locale.", "accessories", "5000", 15},
		{"tel-004", "u-yao", "Yao Tech", "Téléphone Tecno Spark", "Smartphone double SIM, 64 Go.", "electronics", "65000", 3},
		{"lampe-005", "u-yao", "Yao Tech", "Lampe solaire", "Lampe solaire rechargeable, 12h d'autonomie.", "home", "7500", 0},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	base := time.Now().UTC().Add(-time.Hour)
	for i, x := range products {
		ts := base.Add(time.Duration(i) * time.Minute).Format(TimeFormat)
		img := domain.PlaceholderImage
		tx.MustExec(`
			INSERT INTO products(id,seller_id,seller_name,name,description,category,price,stock,image_url,images_json,created_at,updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		`, x.ID, x.Seller, x.SellerName, x.Name, x.Desc, x.Cat, x.Price, x.Stock, img, `["`+img+`"]`, ts, ts)
	}
	tx.MustExec(`UPDATE users SET total_products = (SELECT COUNT(*) FROM products p WHERE p.seller_id = users.id) WHERE role = 'seller'`)

	return tx.Commit()
}
