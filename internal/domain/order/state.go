package order

// orderState implements the state pattern for the order lifecycle. Each state
// answers every transition request; anything not allowed from that state
// returns ErrInvalidStateTransition without mutating the order.
type orderState interface {
	Status() Status
	OnPaymentSucceeded(o *Order) (orderState, error)
	OnShip(o *Order) (orderState, error)
	OnDeliver(o *Order) (orderState, error)
	OnCancel(o *Order) (orderState, error)
	OnRefund(o *Order) (orderState, error)
}

func stateFor(s Status) orderState {
	switch s {
	case StatusPending:
		return pendingState{}
	case StatusProcessing:
		return processingState{}
	case StatusShipped:
		return shippedState{}
	case StatusDelivered:
		return deliveredState{}
	case StatusCancelled:
		return cancelledState{}
	case StatusRefunded:
		return refundedState{}
	default:
		return invalidState{status: s}
	}
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) OnPaymentSucceeded(*Order) (orderState, error) { return processingState{}, nil }
func (pendingState) OnShip(*Order) (orderState, error)             { return nil, ErrInvalidStateTransition }
func (pendingState) OnDeliver(*Order) (orderState, error)          { return nil, ErrInvalidStateTransition }
func (pendingState) OnCancel(*Order) (orderState, error)           { return cancelledState{}, nil }
func (pendingState) OnRefund(*Order) (orderState, error)           { return refundedState{}, nil }

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (processingState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (processingState) OnShip(*Order) (orderState, error)    { return shippedState{}, nil }
func (processingState) OnDeliver(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (processingState) OnCancel(*Order) (orderState, error)  { return cancelledState{}, nil }
func (processingState) OnRefund(*Order) (orderState, error)  { return refundedState{}, nil }

type shippedState struct{}

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (shippedState) OnShip(*Order) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (shippedState) OnDeliver(*Order) (orderState, error) { return deliveredState{}, nil }
func (shippedState) OnCancel(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
func (shippedState) OnRefund(*Order) (orderState, error)  { return refundedState{}, nil }

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (deliveredState) OnShip(*Order) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (deliveredState) OnDeliver(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (deliveredState) OnCancel(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
func (deliveredState) OnRefund(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (cancelledState) OnShip(*Order) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (cancelledState) OnDeliver(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (cancelledState) OnCancel(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
func (cancelledState) OnRefund(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }

type refundedState struct{}

func (refundedState) Status() Status { return StatusRefunded }

func (refundedState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (refundedState) OnShip(*Order) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (refundedState) OnDeliver(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (refundedState) OnCancel(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
func (refundedState) OnRefund(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }

type invalidState struct{ status Status }

func (s invalidState) Status() Status { return s.status }

func (invalidState) OnPaymentSucceeded(*Order) (orderState, error) {
	return nil, ErrInvalidStateTransition
}
func (invalidState) OnShip(*Order) (orderState, error)    { return nil, ErrInvalidStateTransition }
func (invalidState) OnDeliver(*Order) (orderState, error) { return nil, ErrInvalidStateTransition }
func (invalidState) OnCancel(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
func (invalidState) OnRefund(*Order) (orderState, error)  { return nil, ErrInvalidStateTransition }
