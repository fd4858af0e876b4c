package lifecycle

import "github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:   {models.PaymentSucceeded, models.PaymentFailed},
	models.PaymentSucceeded: {models.PaymentRefunded},
}

// TransitionPayment accepts a gateway-reported status change.
func TransitionPayment(current, target models.PaymentStatus) (models.PaymentStatus, error) {
	for _, to := range paymentTransitions[current] {
		if to == target {
			return to, nil
		}
	}
	return current, models.NewInvalidTransitionError("payment", string(current), "mark "+string(target)+" from")
}

var inspectionTransitions = map[models.InspectionStatus][]models.InspectionStatus{
	models.InspectionScheduled:  {models.InspectionInProgress, models.InspectionCancelled},
	models.InspectionInProgress: {models.InspectionCompleted, models.InspectionCancelled},
}

// TransitionInspection moves an inspection forward.
func TransitionInspection(current, target models.InspectionStatus) (models.InspectionStatus, error) {
	for _, to := range inspectionTransitions[current] {
		if to == target {
			return to, nil
		}
	}
	return current, models.NewInvalidTransitionError("inspection", string(current), "move to "+string(target)+" from")
}

var maintenanceTransitions = map[models.MaintenanceStatus][]models.MaintenanceStatus{
	models.MaintenanceOpen:       {models.MaintenanceAssigned, models.MaintenanceCancelled},
	models.MaintenanceAssigned:   {models.MaintenanceInProgress, models.MaintenanceCancelled},
	models.MaintenanceInProgress: {models.MaintenanceCompleted, models.MaintenanceCancelled},
}

// TransitionMaintenance moves a maintenance request forward. Assignment needs a vendor.
func TransitionMaintenance(req *models.MaintenanceRequest, target models.MaintenanceStatus) (models.MaintenanceStatus, error) {
	allowed := false
	for _, to := range maintenanceTransitions[req.Status] {
		if to == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return req.Status, models.NewInvalidTransitionError("maintenance request", string(req.Status), "move to "+string(target)+" from")
	}
	if target == models.MaintenanceAssigned && req.VendorID == nil {
		return req.Status, models.NewPreconditionFailedError("a vendor must be assigned before the request can move to ASSIGNED")
	}
	return target, nil
}
