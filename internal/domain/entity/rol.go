package entity

// Rol de seguridad. La administración de roles (asignaciones, menús) vive en
// otro módulo; el núcleo de autenticación solo lee nombres de rol para
// incrustarlos en el access token.
type Rol struct {
	ID        string
	Nombre    string
	EsSistema bool // rol reservado, no editable por administradores
	EsEntidad bool // rol con alcance de entidad (organización)
}
