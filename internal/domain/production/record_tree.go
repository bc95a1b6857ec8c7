package production

import (
	"fmt"

	"github.com/jhoicas/produccion-pesquera/internal/domain"
	"github.com/jhoicas/produccion-pesquera/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SourceOption origen que un registro puede usar en la asignación de costos de sus salidas.
type SourceOption struct {
	SourceType  entity.CostSourceType
	ReferenceID string          // BoxID (stock_box) o ID del consumo (parent_output)
	ProductID   string
	WeightKg    decimal.Decimal // peso consumido por el registro desde ese origen
}

// ValidateParent verifica que candidateParentID pueda ser padre de recordID.
// descendants es la cadena ya enraizada en recordID (registros que lo tienen como ancestro);
// si el candidato es el propio registro o uno de ellos, la asignación cerraría un ciclo.
func ValidateParent(candidateParentID, recordID string, descendants []string) error {
	if candidateParentID == "" || recordID == "" {
		return nil
	}
	if candidateParentID == recordID {
		return &domain.CycleError{RecordID: recordID, ParentID: candidateParentID, Path: []string{recordID, recordID}}
	}
	for _, d := range descendants {
		if d == candidateParentID {
			return &domain.CycleError{RecordID: recordID, ParentID: candidateParentID}
		}
	}
	return nil
}

// Descendants devuelve los IDs de todos los registros que tienen a recordID como ancestro,
// recorriendo en anchura los enlaces de padre de los registros ya obtenidos de la producción.
func Descendants(recordID string, records []entity.ProductionRecord) []string {
	children := make(map[string][]string, len(records))
	for _, r := range records {
		if r.IsRoot() || r.ID == "" {
			continue
		}
		children[*r.ParentRecordID] = append(children[*r.ParentRecordID], r.ID)
	}
	visited := map[string]bool{recordID: true}
	queue := []string{recordID}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// AncestorChain devuelve los ancestros de recordID desde el padre inmediato hasta la raíz.
// Si la cadena revisita un nodo (datos corruptos) devuelve CycleError con el camino recorrido.
func AncestorChain(recordID string, records []entity.ProductionRecord) ([]string, error) {
	parentOf := make(map[string]string, len(records))
	for _, r := range records {
		if r.ID != "" && !r.IsRoot() {
			parentOf[r.ID] = *r.ParentRecordID
		}
	}
	visited := map[string]bool{recordID: true}
	path := []string{recordID}
	var chain []string
	current := recordID
	for {
		parent, ok := parentOf[current]
		if !ok {
			return chain, nil
		}
		path = append(path, parent)
		if visited[parent] {
			return nil, &domain.CycleError{RecordID: recordID, ParentID: parentOf[recordID], Path: path}
		}
		visited[parent] = true
		chain = append(chain, parent)
		current = parent
	}
}

// ExpectedSourceType tipo de origen permitido: stock para raíces, salida del padre para hijos.
func ExpectedSourceType(r entity.ProductionRecord) entity.CostSourceType {
	if r.IsRoot() {
		return entity.SourceStockBox
	}
	return entity.SourceParentOutput
}

// ValidateSourceType rechaza una fuente cuyo tipo no corresponde al registro.
func ValidateSourceType(r entity.ProductionRecord, src entity.CostSource) error {
	expected := ExpectedSourceType(r)
	if src.SourceType != expected {
		return fmt.Errorf("%w: se esperaba %s, se recibió %q", domain.ErrSourceTypeMismatch, expected, src.SourceType)
	}
	return nil
}

// ValidateRecordSources valida todas las fuentes de costo del registro y que una raíz no consuma salidas de otro registro.
func ValidateRecordSources(r entity.ProductionRecord) error {
	if r.IsRoot() && len(r.ParentOutputConsumptions) > 0 {
		return fmt.Errorf("%w: un registro raíz solo consume stock", domain.ErrSourceTypeMismatch)
	}
	for _, o := range r.Outputs {
		for _, src := range o.CostSources {
			if err := ValidateSourceType(r, src); err != nil {
				return err
			}
		}
	}
	return nil
}

// EligibleSources lista los orígenes que el registro puede usar: sus cajas de stock si es raíz,
// sus consumos de salidas del padre si es hijo. Nunca mezcla ambos tipos.
func EligibleSources(r entity.ProductionRecord) []SourceOption {
	if r.IsRoot() {
		idx := make(map[string]int, len(r.Inputs))
		out := make([]SourceOption, 0, len(r.Inputs))
		for _, in := range r.Inputs {
			if i, ok := idx[in.BoxID]; ok {
				out[i].WeightKg = out[i].WeightKg.Add(in.WeightKg)
				continue
			}
			idx[in.BoxID] = len(out)
			out = append(out, SourceOption{
				SourceType:  entity.SourceStockBox,
				ReferenceID: in.BoxID,
				ProductID:   in.ProductID,
				WeightKg:    in.WeightKg,
			})
		}
		return out
	}
	out := make([]SourceOption, 0, len(r.ParentOutputConsumptions))
	for _, c := range r.ParentOutputConsumptions {
		out = append(out, SourceOption{
			SourceType:  entity.SourceParentOutput,
			ReferenceID: c.ID,
			ProductID:   c.ProductID,
			WeightKg:    c.WeightKg,
		})
	}
	return out
}
