package engine

import (
	"context"
	"fmt"
	"time"

	"tradingdesk/internal/broker"
	"tradingdesk/internal/risk"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

// TickReport describes what one tick or the shutdown did to the deposit.
type TickReport struct {
	Seq      uint64
	Price    market.Price
	At       time.Time
	Elapsed  time.Duration
	Applied  []sdk.Instruction
	Rejected []Rejection
	Fills    []broker.Fill
}

// Rejection is an instruction the session refused to apply.
type Rejection struct {
	Instruction sdk.Instruction
	Err         error
}

// apply runs instructions in order. A rejected instruction does not stop the
// ones after it.
func (s *Session) apply(ctx context.Context, report *TickReport, instructions []sdk.Instruction, at time.Time, shutdown bool) {
	for _, in := range instructions {
		if err := s.applyOne(ctx, in, at, shutdown); err != nil {
			s.metrics.IncRejection()
			report.Rejected = append(report.Rejected, Rejection{Instruction: in, Err: err})
			s.record(ctx, Event{Kind: EventRejected, OrderID: in.ID, Price: s.lastPrice, Detail: in.String() + ": " + err.Error(), At: at})
			continue
		}
		s.metrics.IncInstruction(in.Kind)
		report.Applied = append(report.Applied, in)
	}
}

func (s *Session) applyOne(ctx context.Context, in sdk.Instruction, at time.Time, shutdown bool) error {
	switch in.Kind {
	case sdk.InstructionPlaceOrder:
		if shutdown {
			return exception.ErrOpeningInShutdown
		}
		if len(in.Order.Data) == 0 {
			return fmt.Errorf("%w: order without data", exception.ErrInvalidArgument)
		}
		if s.risk != nil {
			d := s.risk.Evaluate(in.Order, risk.StateView{
				OpenOrders:     s.deposit.OrderCount(),
				OpenPositions:  s.deposit.PositionCount(),
				ReferencePrice: s.lastPrice,
				Now:            at,
			})
			if !d.Allow {
				return fmt.Errorf("%w: %s", exception.ErrRiskDenied, d.Reason)
			}
		}
		s.deposit.PlaceOrder(in.Order)
		s.record(ctx, Event{Kind: EventOrderPlaced, OrderID: in.Order.Data[0].ID, Price: s.lastPrice, Detail: in.Order.Kind.String(), At: at})
		return nil

	case sdk.InstructionDeleteOrder:
		if _, err := s.deposit.DeleteOrder(in.ID); err != nil {
			return err
		}
		s.record(ctx, Event{Kind: EventOrderDeleted, OrderID: in.ID, At: at})
		return nil

	case sdk.InstructionClosePosition:
		pos, ok := s.deposit.GetPosition(in.ID)
		if !ok {
			return exception.ErrNoSuchPosition
		}
		sellPrice := s.lastPrice * market.Price(pos.Pieces)
		if _, err := s.deposit.ClosePosition(in.ID, sellPrice); err != nil {
			return err
		}
		s.record(ctx, Event{Kind: EventPositionClosed, OrderID: pos.OrderID, PositionID: pos.ID, Price: sellPrice, At: at})
		return nil

	case sdk.InstructionUpdateTakeProfit:
		if err := s.deposit.EditPosition(in.ID, func(p *ledger.PositionPolicy) { p.TakeProfit = in.TakeProfit }); err != nil {
			return err
		}
		s.record(ctx, Event{Kind: EventPositionUpdated, PositionID: in.ID, Price: in.TakeProfit.Price, Detail: "take profit", At: at})
		return nil

	case sdk.InstructionUpdateStopLoss:
		if err := s.deposit.EditPosition(in.ID, func(p *ledger.PositionPolicy) { p.StopLoss = in.StopLoss }); err != nil {
			return err
		}
		s.record(ctx, Event{Kind: EventPositionUpdated, PositionID: in.ID, Price: in.StopLoss.Price, Detail: "stop loss", At: at})
		return nil

	default:
		return fmt.Errorf("%w: instruction kind %d", exception.ErrInvalidArgument, in.Kind)
	}
}
