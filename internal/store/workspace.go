// Package store — нормализованное хранилище проектов и flows рабочего места.
//
// Workspace хранит все проекты (allProjects), указатели на открытые
// проект и flow и флаг needsSave. Любое изменение содержимого flow
// пишется в обе копии: в запись проекта и в currentFlow, если он
// указывает на тот же flow. Значения копируются на входе и на выходе.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Ошибки хранилища.
var (
	// ErrProjectNotFound — проект не найден.
	ErrProjectNotFound = errors.New("project not found")

	// ErrFlowNotFound — flow не найден в проекте.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrProjectExists — проект с таким ID уже есть.
	ErrProjectExists = errors.New("project already exists")

	// ErrFlowExists — flow с таким ID уже есть в проекте.
	ErrFlowExists = errors.New("flow already exists")

	// ErrNoCurrentFlow — операция требует открытого flow.
	ErrNoCurrentFlow = errors.New("no current flow")

	// ErrTemplateNotFound — шаблон не найден.
	ErrTemplateNotFound = errors.New("template not found")
)

// Имена стартового workspace.
const (
	starterProjectName = "Starter Project"
	starterProjectDesc = "This is the starter project."
	starterFlowName    = "Initial Flow"
	starterFlowDesc    = "This is the initial flow."
)

// Workspace — состояние рабочего места пользователя.
//
// Workspace не потокобезопасен: у него один владелец, который
// сериализует все вызовы.
type Workspace struct {
	allProjects    []domain.Project
	templates      []domain.Project
	currentProject *domain.Project
	currentFlow    *domain.Flow
	needsSave      bool
}

// NewWorkspace создаёт workspace со стартовым проектом и пустым flow.
func NewWorkspace() *Workspace {
	flow := domain.NewStarterFlow(domain.StarterFlowID, starterFlowName, domain.StarterProjectID)
	flow.Description = starterFlowDesc

	return &Workspace{
		allProjects: []domain.Project{{
			ID:          domain.StarterProjectID,
			Name:        starterProjectName,
			Description: starterProjectDesc,
			Flows:       []domain.Flow{flow},
		}},
	}
}

// --- Current pointers ---

// SetCurrentProject делает копию проекта текущей. nil сбрасывает указатель.
func (w *Workspace) SetCurrentProject(p *domain.Project) {
	if p == nil {
		w.currentProject = nil
		return
	}
	cp := p.Clone()
	w.currentProject = &cp
}

// SetCurrentFlow делает копию flow текущей. nil сбрасывает указатель.
func (w *Workspace) SetCurrentFlow(f *domain.Flow) {
	if f == nil {
		w.currentFlow = nil
		return
	}
	cp := f.Clone()
	w.currentFlow = &cp
}

// CurrentProject возвращает копию текущего проекта.
func (w *Workspace) CurrentProject() (domain.Project, bool) {
	if w.currentProject == nil {
		return domain.Project{}, false
	}
	return w.currentProject.Clone(), true
}

// CurrentFlow возвращает копию текущего flow.
func (w *Workspace) CurrentFlow() (domain.Flow, bool) {
	if w.currentFlow == nil {
		return domain.Flow{}, false
	}
	return w.currentFlow.Clone(), true
}

// ClearCurrentFlow сбрасывает текущий flow.
func (w *Workspace) ClearCurrentFlow() {
	w.currentFlow = nil
}

// ClearCurrentProject сбрасывает текущий проект.
func (w *Workspace) ClearCurrentProject() {
	w.currentProject = nil
}

// OpenFlow делает текущими проект и flow по их ID.
func (w *Workspace) OpenFlow(projectID, flowID string) (domain.Flow, error) {
	pi := w.projectIndex(projectID)
	if pi < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	fi := w.allProjects[pi].FlowIndex(flowID)
	if fi < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	w.SetCurrentProject(&w.allProjects[pi])
	w.SetCurrentFlow(&w.allProjects[pi].Flows[fi])
	return w.allProjects[pi].Flows[fi].Clone(), nil
}

// --- Projects ---

// Projects возвращает копию всех проектов.
func (w *Workspace) Projects() []domain.Project {
	out := make([]domain.Project, len(w.allProjects))
	for i := range w.allProjects {
		out[i] = w.allProjects[i].Clone()
	}
	return out
}

// Project возвращает копию проекта по ID.
func (w *Workspace) Project(id string) (domain.Project, error) {
	i := w.projectIndex(id)
	if i < 0 {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return w.allProjects[i].Clone(), nil
}

// SetProjects заменяет все проекты (загрузка из хранилища).
//
// Указатели на текущие проект и flow сбрасываются, если их больше нет.
func (w *Workspace) SetProjects(projects []domain.Project) {
	w.allProjects = make([]domain.Project, len(projects))
	for i := range projects {
		w.allProjects[i] = projects[i].Clone()
	}

	if w.currentProject != nil {
		if i := w.projectIndex(w.currentProject.ID); i >= 0 {
			w.SetCurrentProject(&w.allProjects[i])
		} else {
			w.currentProject = nil
		}
	}
	if w.currentFlow != nil {
		if f, ok := w.findFlow(w.currentFlow.ProjectID, w.currentFlow.ID); ok {
			w.SetCurrentFlow(f)
		} else {
			w.currentFlow = nil
		}
	}
	w.needsSave = false
}

// AddProject добавляет проект. Пустой ID заменяется сгенерированным.
func (w *Workspace) AddProject(p domain.Project) (domain.Project, error) {
	if err := validateName(p.Name); err != nil {
		return domain.Project{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if w.projectIndex(p.ID) >= 0 {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectExists, p.ID)
	}

	p = p.Clone()
	if p.Flows == nil {
		p.Flows = []domain.Flow{}
	}
	for i := range p.Flows {
		p.Flows[i].ProjectID = p.ID
	}
	w.allProjects = append(w.allProjects, p)
	return p.Clone(), nil
}

// UpdateProject меняет имя и описание проекта. Flows проекта не трогаются:
// они изменяются только операциями над flow.
func (w *Workspace) UpdateProject(p domain.Project) (domain.Project, error) {
	if err := validateName(p.Name); err != nil {
		return domain.Project{}, err
	}
	i := w.projectIndex(p.ID)
	if i < 0 {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, p.ID)
	}

	w.allProjects[i].Name = p.Name
	w.allProjects[i].Description = p.Description
	w.syncCurrentProject(i)
	return w.allProjects[i].Clone(), nil
}

// DeleteProject удаляет проект. Если он текущий, сбрасываются оба указателя.
func (w *Workspace) DeleteProject(id string) error {
	i := w.projectIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	w.allProjects = append(w.allProjects[:i:i], w.allProjects[i+1:]...)

	if w.currentProject != nil && w.currentProject.ID == id {
		w.currentProject = nil
		w.currentFlow = nil
	}
	if w.currentFlow != nil && w.currentFlow.ProjectID == id {
		w.currentFlow = nil
	}
	return nil
}

// --- Flows ---

// AddFlow добавляет flow в проект flow.ProjectID и делает его текущим.
//
// Пустой ID заменяется сгенерированным, пустой flow получает placeholder.
func (w *Workspace) AddFlow(f domain.Flow) (domain.Flow, error) {
	if err := validateName(f.Name); err != nil {
		return domain.Flow{}, err
	}
	pi := w.projectIndex(f.ProjectID)
	if pi < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrProjectNotFound, f.ProjectID)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if w.allProjects[pi].FlowIndex(f.ID) >= 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrFlowExists, f.ID)
	}

	f = f.Clone()
	if len(f.Nodes) == 0 {
		f.Nodes = []domain.Node{domain.NewFlowPlaceholder()}
	}
	if f.Edges == nil {
		f.Edges = []domain.Edge{}
	}
	if f.Viewport.Zoom == 0 {
		f.Viewport.Zoom = 1
	}

	w.allProjects[pi].Flows = append(w.allProjects[pi].Flows, f)
	w.SetCurrentFlow(&f)
	w.syncCurrentProject(pi)
	return f.Clone(), nil
}

// UpdateFlow заменяет flow в его проекте целиком и помечает needsSave.
// currentFlow обновляется, если это тот же flow.
func (w *Workspace) UpdateFlow(f domain.Flow) (domain.Flow, error) {
	if err := validateName(f.Name); err != nil {
		return domain.Flow{}, err
	}
	pi := w.projectIndex(f.ProjectID)
	if pi < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrProjectNotFound, f.ProjectID)
	}
	fi := w.allProjects[pi].FlowIndex(f.ID)
	if fi < 0 {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrFlowNotFound, f.ID)
	}

	w.allProjects[pi].Flows[fi] = f.Clone()
	if w.currentFlow != nil && w.currentFlow.ID == f.ID {
		w.SetCurrentFlow(&f)
	}
	w.syncCurrentProject(pi)
	w.needsSave = true
	return f.Clone(), nil
}

// DeleteFlow удаляет flow из проекта. Если он текущий, указатель сбрасывается.
func (w *Workspace) DeleteFlow(projectID, flowID string) error {
	pi := w.projectIndex(projectID)
	if pi < 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	fi := w.allProjects[pi].FlowIndex(flowID)
	if fi < 0 {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	flows := w.allProjects[pi].Flows
	w.allProjects[pi].Flows = append(flows[:fi:fi], flows[fi+1:]...)

	if w.currentFlow != nil && w.currentFlow.ID == flowID {
		w.currentFlow = nil
	}
	w.syncCurrentProject(pi)
	return nil
}

// AddNodeToFlow заменяет весь список узлов текущего flow.
//
// Placeholder new-flow отбрасывается, если в списке есть настоящий узел.
func (w *Workspace) AddNodeToFlow(nodes []domain.Node) error {
	return w.mutateCurrent(func(f *domain.Flow) {
		f.Nodes = domain.WithoutPlaceholder(domain.CloneNodes(nodes))
		if f.Nodes == nil {
			f.Nodes = []domain.Node{}
		}
	})
}

// AddEdgeToFlow заменяет весь список рёбер текущего flow.
func (w *Workspace) AddEdgeToFlow(edges []domain.Edge) error {
	return w.mutateCurrent(func(f *domain.Flow) {
		f.Edges = domain.CloneEdges(edges)
		if f.Edges == nil {
			f.Edges = []domain.Edge{}
		}
	})
}

// RemoveNodeFromFlow удаляет узел из текущего flow.
func (w *Workspace) RemoveNodeFromFlow(nodeID string) error {
	return w.mutateCurrent(func(f *domain.Flow) {
		nodes := f.Nodes[:0:0]
		for _, n := range f.Nodes {
			if n.ID != nodeID {
				nodes = append(nodes, n)
			}
		}
		f.Nodes = nodes
	})
}

// RemoveEdgeFromFlow удаляет ребро из текущего flow.
func (w *Workspace) RemoveEdgeFromFlow(edgeID string) error {
	return w.mutateCurrent(func(f *domain.Flow) {
		edges := f.Edges[:0:0]
		for _, e := range f.Edges {
			if e.ID != edgeID {
				edges = append(edges, e)
			}
		}
		f.Edges = edges
	})
}

// SetViewport сохраняет положение канваса текущего flow.
func (w *Workspace) SetViewport(v domain.Viewport) error {
	return w.mutateCurrent(func(f *domain.Flow) {
		f.Viewport = v
	})
}

// --- Save flag ---

// NeedsSave возвращает true, если содержимое flow менялось после Save.
func (w *Workspace) NeedsSave() bool {
	return w.needsSave
}

// Save сбрасывает флаг needsSave.
func (w *Workspace) Save() {
	w.needsSave = false
}

// --- Templates ---

// Templates возвращает копию шаблонов проектов.
func (w *Workspace) Templates() []domain.Project {
	out := make([]domain.Project, len(w.templates))
	for i := range w.templates {
		out[i] = w.templates[i].Clone()
	}
	return out
}

// AddTemplate добавляет шаблон проекта.
func (w *Workspace) AddTemplate(t domain.Project) error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	w.templates = append(w.templates, t.Clone())
	return nil
}

// UpdateTemplate заменяет шаблон с тем же ID.
func (w *Workspace) UpdateTemplate(t domain.Project) error {
	for i := range w.templates {
		if w.templates[i].ID == t.ID {
			w.templates[i] = t.Clone()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTemplateNotFound, t.ID)
}

// --- internal ---

// mutateCurrent применяет изменение к currentFlow и к его записи в проекте.
func (w *Workspace) mutateCurrent(fn func(f *domain.Flow)) error {
	if w.currentFlow == nil {
		return ErrNoCurrentFlow
	}

	fn(w.currentFlow)

	pi := w.projectIndex(w.currentFlow.ProjectID)
	if pi >= 0 {
		if fi := w.allProjects[pi].FlowIndex(w.currentFlow.ID); fi >= 0 {
			w.allProjects[pi].Flows[fi] = w.currentFlow.Clone()
			w.syncCurrentProject(pi)
		}
	}

	w.needsSave = true
	return nil
}

// syncCurrentProject обновляет копию currentProject, если это проект pi.
func (w *Workspace) syncCurrentProject(pi int) {
	if w.currentProject != nil && w.currentProject.ID == w.allProjects[pi].ID {
		w.SetCurrentProject(&w.allProjects[pi])
	}
}

func (w *Workspace) projectIndex(id string) int {
	for i := range w.allProjects {
		if w.allProjects[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Workspace) findFlow(projectID, flowID string) (*domain.Flow, bool) {
	pi := w.projectIndex(projectID)
	if pi < 0 {
		return nil, false
	}
	fi := w.allProjects[pi].FlowIndex(flowID)
	if fi < 0 {
		return nil, false
	}
	return &w.allProjects[pi].Flows[fi], true
}

// validateName отклоняет пустые имена до любых изменений.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyName
	}
	return nil
}
