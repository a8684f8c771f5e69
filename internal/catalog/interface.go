package catalog

type CatalogHandler interface {
	Get(name string) (TemplateSpec, error)
	List() []TemplateSpec
}
