package llm

import "persona-gateway/internal/domain"

// Dispatcher reparte cada llamada entre el proveedor primario (general) y el
// secundario (sin censura). El secundario atiende las rutas explícitas sin
// importar cuál de los dos corre en local.
type Dispatcher struct {
	primary   LLMClient
	secondary LLMClient
}

// NewDispatcher construye el dispatcher. Sin proveedor secundario configurado,
// el primario atiende todas las rutas.
func NewDispatcher(primary, secondary LLMClient) *Dispatcher {
	if secondary == nil {
		secondary = primary
	}
	return &Dispatcher{primary: primary, secondary: secondary}
}

func (d *Dispatcher) Primary() LLMClient { return d.primary }

func (d *Dispatcher) Secondary() LLMClient { return d.secondary }

// ForRoute devuelve el proveedor que atiende la ruta dada.
func (d *Dispatcher) ForRoute(route domain.RouteState) LLMClient {
	if route.IsExplicit() {
		return d.secondary
	}
	return d.primary
}

// Alternate devuelve el proveedor opuesto al dado; lo usa la ruta de fallback
// cuando el proveedor elegido falla a mitad de stream.
func (d *Dispatcher) Alternate(client LLMClient) LLMClient {
	if client == d.secondary {
		return d.primary
	}
	return d.secondary
}
