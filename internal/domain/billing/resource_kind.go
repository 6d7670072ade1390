package billing

// ResourceKind is a countable, plan-limited resource inside a tenant
type ResourceKind string

const (
	ResourceUsers      ResourceKind = "users"
	ResourceProducts   ResourceKind = "products"
	ResourceWarehouses ResourceKind = "warehouses"
	ResourceBranches   ResourceKind = "branches"
)

// IsValid returns true for a known resource kind
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceUsers, ResourceProducts, ResourceWarehouses, ResourceBranches:
		return true
	}
	return false
}

// String returns the string representation
func (k ResourceKind) String() string {
	return string(k)
}

// AllResourceKinds returns every plan-limited resource kind
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceUsers, ResourceProducts, ResourceWarehouses, ResourceBranches}
}
