package model

// MachineStatus is the operational state of a machine.
type MachineStatus string

const (
	MachineAvailable   MachineStatus = "disponible"
	MachineOperational MachineStatus = "operativa"
	MachineMaintenance MachineStatus = "mantenimiento"
	MachineRepair      MachineStatus = "reparacion"
	MachineOutOfOrder  MachineStatus = "fuera_servicio"
	MachineRetired     MachineStatus = "retirada"
)

// MachineStatuses lists every machine status in display order.
var MachineStatuses = []MachineStatus{
	MachineAvailable, MachineOperational, MachineMaintenance,
	MachineRepair, MachineOutOfOrder, MachineRetired,
}

func (s MachineStatus) IsValid() bool {
	switch s {
	case MachineAvailable, MachineOperational, MachineMaintenance,
		MachineRepair, MachineOutOfOrder, MachineRetired:
		return true
	}
	return false
}

// MachineCondition is the physical condition grade of a machine.
type MachineCondition string

const (
	ConditionExcellent MachineCondition = "excelente"
	ConditionGood      MachineCondition = "buena"
	ConditionFair      MachineCondition = "regular"
	ConditionPoor      MachineCondition = "mala"
	ConditionCritical  MachineCondition = "critica"
)

func (c MachineCondition) IsValid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionCritical:
		return true
	}
	return false
}

// AlertType classifies why an alert was raised.
type AlertType string

const (
	AlertMaintenance AlertType = "mantenimiento"
	AlertRepair      AlertType = "reparacion"
	AlertEfficiency  AlertType = "eficiencia"
	AlertOveruse     AlertType = "uso_excesivo"
	AlertWarranty    AlertType = "garantia"
	AlertInspection  AlertType = "inspeccion"
)

func (t AlertType) IsValid() bool {
	switch t {
	case AlertMaintenance, AlertRepair, AlertEfficiency, AlertOveruse, AlertWarranty, AlertInspection:
		return true
	}
	return false
}

// AlertPriority orders alerts by urgency.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "baja"
	PriorityMedium   AlertPriority = "media"
	PriorityHigh     AlertPriority = "alta"
	PriorityCritical AlertPriority = "critica"

	// priorityEmergency is accepted on input and stored as PriorityCritical.
	priorityEmergency AlertPriority = "emergencia"
)

// ParseAlertPriority validates a priority and folds the legacy "emergencia" value into critica.
func ParseAlertPriority(s string) (AlertPriority, bool) {
	p := AlertPriority(s)
	if p == priorityEmergency {
		return PriorityCritical, true
	}
	return p, p.IsValid()
}

func (p AlertPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank returns a sortable weight; higher is more urgent.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive     AlertStatus = "activa"
	AlertInProgress AlertStatus = "en_proceso"
	AlertResolved   AlertStatus = "resuelta"
	AlertIgnored    AlertStatus = "ignorada"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertActive, AlertInProgress, AlertResolved, AlertIgnored:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s AlertStatus) Terminal() bool {
	return s == AlertResolved || s == AlertIgnored
}

// EventType classifies a machine history entry.
type EventType string

const (
	EventCreated           EventType = "creacion"
	EventMaintenance       EventType = "mantenimiento"
	EventRepair            EventType = "reparacion"
	EventStatusChange      EventType = "cambio_estado"
	EventLocationChange    EventType = "cambio_ubicacion"
	EventResponsibleChange EventType = "cambio_responsable"
	EventUpdated           EventType = "actualizacion"
	EventInspection        EventType = "inspeccion"
	EventDeleted           EventType = "eliminacion"
	EventAlertCreated      EventType = "alerta_creada"
	EventAlertResolved     EventType = "alerta_resuelta"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventCreated, EventMaintenance, EventRepair, EventStatusChange,
		EventLocationChange, EventResponsibleChange, EventUpdated,
		EventInspection, EventDeleted, EventAlertCreated, EventAlertResolved:
		return true
	}
	return false
}

// MaintenanceType distinguishes planned from corrective work.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventivo"
	MaintenanceCorrective MaintenanceType = "correctivo"
)

func (t MaintenanceType) IsValid() bool {
	return t == MaintenancePreventive || t == MaintenanceCorrective
}

// MaintenanceStatus is the lifecycle state of a scheduled maintenance.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "programado"
	MaintenanceInProgress MaintenanceStatus = "en_proceso"
	MaintenanceCompleted  MaintenanceStatus = "completado"
	MaintenanceCancelled  MaintenanceStatus = "cancelado"
)

func (s MaintenanceStatus) IsValid() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

// Role is a user's authorization role.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinador"
	RoleTechnician  Role = "tecnico"
	RoleInstructor  Role = "instructor"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleTechnician, RoleInstructor:
		return true
	}
	return false
}

// DocumentKind classifies an uploaded machine document.
type DocumentKind string

const (
	DocumentImage     DocumentKind = "imagen"
	DocumentManual    DocumentKind = "manual"
	DocumentDatasheet DocumentKind = "ficha_tecnica"
	DocumentOther     DocumentKind = "otro"
)

func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentImage, DocumentManual, DocumentDatasheet, DocumentOther:
		return true
	}
	return false
}

// ActionSuspendOperation is the immediate action that takes a machine out of service
// when raised on a critical alert.
const ActionSuspendOperation = "suspender_operacion"
