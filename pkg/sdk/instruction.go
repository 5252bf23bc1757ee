package sdk

import (
	"fmt"

	"tradingdesk/pkg/ledger"
)

type InstructionKind uint8

const (
	InstructionPlaceOrder InstructionKind = iota + 1
	InstructionDeleteOrder
	InstructionClosePosition
	InstructionUpdateTakeProfit
	InstructionUpdateStopLoss
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionPlaceOrder:
		return "PlaceOrder"
	case InstructionDeleteOrder:
		return "DeleteOrder"
	case InstructionClosePosition:
		return "ClosePosition"
	case InstructionUpdateTakeProfit:
		return "UpdateTakeProfit"
	case InstructionUpdateStopLoss:
		return "UpdateStopLoss"
	default:
		return "Unknown"
	}
}

// Instruction is what an algorithm asks the host to do with the ledger.
// ID refers to an order for DeleteOrder and to a position otherwise.
type Instruction struct {
	Kind       InstructionKind
	Order      ledger.Order
	ID         uint64
	TakeProfit ledger.TakeProfit
	StopLoss   ledger.StopLoss
}

func PlaceOrder(order ledger.Order) Instruction {
	return Instruction{Kind: InstructionPlaceOrder, Order: order}
}

func DeleteOrder(orderID uint64) Instruction {
	return Instruction{Kind: InstructionDeleteOrder, ID: orderID}
}

func ClosePosition(positionID uint64) Instruction {
	return Instruction{Kind: InstructionClosePosition, ID: positionID}
}

func UpdateTakeProfit(positionID uint64, takeProfit ledger.TakeProfit) Instruction {
	return Instruction{Kind: InstructionUpdateTakeProfit, ID: positionID, TakeProfit: takeProfit}
}

func UpdateStopLoss(positionID uint64, stopLoss ledger.StopLoss) Instruction {
	return Instruction{Kind: InstructionUpdateStopLoss, ID: positionID, StopLoss: stopLoss}
}

// Opens reports whether the instruction may open new exposure.
func (i Instruction) Opens() bool {
	return i.Kind == InstructionPlaceOrder
}

func (i Instruction) String() string {
	if i.Kind == InstructionPlaceOrder {
		return fmt.Sprintf("%s(%s, %d legs)", i.Kind, i.Order.Kind, len(i.Order.Data))
	}
	return fmt.Sprintf("%s(%d)", i.Kind, i.ID)
}
