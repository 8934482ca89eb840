// Package receipt renders PDF receipts for completed payments.
package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/internal/config"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrReceiptUnavailable = apperr.DomainRuleViolation("receipt_requires_completed_payment")

const dateLayout = "02 Jan 2006"

var Module = fx.Module("receipt",
	fx.Provide(NewRenderer),
)

type Params struct {
	fx.In

	Config          config.Config
	Log             *zap.Logger
	PaymentSvc      paymentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Catalog         catalogdomain.Service
}

type Renderer struct {
	cfg             config.ReceiptConfig
	log             *zap.Logger
	paymentSvc      paymentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	catalog         catalogdomain.Service
}

func NewRenderer(p Params) *Renderer {
	return &Renderer{
		cfg:             p.Config.Receipt,
		log:             p.Log.Named("receipt.renderer"),
		paymentSvc:      p.PaymentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		catalog:         p.Catalog,
	}
}

// Line is one priced row on the receipt. Amount is negative for discounts.
type Line struct {
	Description string
	Amount      int64
}

type Data struct {
	GymName       string
	GymAddress    string
	GymEmail      string
	InvoiceNumber string
	PaidAt        time.Time
	PaymentMethod string
	MemberName    string
	MemberEmail   string
	ServicePeriod string
	Lines         []Line
	Total         int64
}

// Render loads the payment with its subscription and member and returns the PDF bytes.
func (r *Renderer) Render(ctx context.Context, paymentID snowflake.ID) ([]byte, error) {
	payment, err := r.paymentSvc.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != paymentdomain.StatusCompleted || payment.PaidAt == nil {
		return nil, ErrReceiptUnavailable
	}
	sub, err := r.subscriptionSvc.Get(ctx, payment.SubscriptionID)
	if err != nil {
		return nil, err
	}
	member, err := r.catalog.GetMember(ctx, payment.MemberID)
	if err != nil {
		return nil, err
	}
	pkg, err := r.catalog.GetPackage(ctx, sub.PackageID)
	if err != nil {
		return nil, err
	}

	data := Data{
		GymName:       r.cfg.GymName,
		GymAddress:    r.cfg.GymAddress,
		GymEmail:      r.cfg.GymEmail,
		InvoiceNumber: payment.InvoiceNumber,
		PaidAt:        *payment.PaidAt,
		PaymentMethod: string(payment.PaymentMethod),
		MemberName:    member.FullName,
		MemberEmail:   member.Email,
		ServicePeriod: sub.StartDate.Format(dateLayout) + " - " + sub.EndDate.Format(dateLayout),
		Lines:         []Line{{Description: pkg.Name, Amount: payment.OriginalAmount}},
		Total:         payment.Amount,
	}
	for _, d := range payment.DiscountDetails {
		label := d.Description
		if d.Code != "" {
			label = fmt.Sprintf("Discount %s", d.Code)
		}
		data.Lines = append(data.Lines, Line{Description: label, Amount: -d.DiscountAmount})
	}

	doc, err := Build(data)
	if err != nil {
		return nil, err
	}
	r.log.Debug("receipt.rendered",
		zap.String("payment_id", paymentID.String()),
		zap.Int("bytes", len(doc)),
	)
	return doc, nil
}

func Build(data Data) ([]byte, error) {
	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(6, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, data.GymName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+data.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.PaidAt.Format(dateLayout), props.Text{Top: 4}),
			text.New("Service period: "+data.ServicePeriod, props.Text{Top: 8}),
			text.New("Payment method: "+data.PaymentMethod, props.Text{Top: 12}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(data.GymName, props.Text{Style: fontstyle.Bold}),
			text.New(data.GymAddress, props.Text{Top: 5}),
			text.New(data.GymEmail, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Member", props.Text{Style: fontstyle.Bold}),
			text.New(data.MemberName, props.Text{Top: 5}),
			text.New(data.MemberEmail, props.Text{Top: 10}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, FormatAmount(data.Total)+" paid on "+data.PaidAt.Format(dateLayout), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(9, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range data.Lines {
		m.AddRow(10,
			text.NewCol(9, line.Description, props.Text{Size: 9}),
			text.NewCol(3, FormatAmount(line.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(3, FormatAmount(data.Total), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// FormatAmount renders a whole-currency amount with thousands separators,
// e.g. 16000000 as "16,000,000 VND".
func FormatAmount(amount int64) string {
	digits := decimal.NewFromInt(amount).Abs().StringFixed(0)
	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(" VND")
	return b.String()
}
