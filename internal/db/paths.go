package db

import (
	"path"
	"strings"
)

// Collection paths of the storefront. User-scoped collections take the
// Firebase Auth UID as their middle segment.
const (
	UsersPath      = "users"
	CategoriesPath = "Category"
	ProductsPath   = "Items"
	cartRoot       = "Cart"
	ordersRoot     = "orders"
	cartLeaf       = "items"

	// firestoreLeaf completes a path that names a document in Firestore.
	firestoreLeaf = "items"
)

// CartPath returns the cart collection of uid.
func CartPath(uid string) string { return path.Join(cartRoot, uid, cartLeaf) }

// OrdersPath returns the order collection of uid.
func OrdersPath(uid string) string { return path.Join(ordersRoot, uid) }

// firestorePath maps a logical collection path onto a Firestore collection.
// Firestore collections sit at odd segment counts, so a path with an even
// count (orders/{uid}) gets a leaf collection appended.
func firestorePath(p string) string {
	if strings.Count(strings.Trim(p, "/"), "/")%2 == 1 {
		return path.Join(p, firestoreLeaf)
	}
	return p
}
