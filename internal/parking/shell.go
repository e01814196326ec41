package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const DefaultPrompt = "$ "

// Shell is the line-oriented front end. It reads one command per line and
// writes plain-text answers.
type Shell struct {
	useCase UseCase
	scanner *bufio.Scanner
	out     io.Writer
	tracer  trace.Tracer
	prompt  string
}

type ShellOption func(*Shell)

func WithTracer(tracer trace.Tracer) ShellOption {
	return func(s *Shell) {
		s.tracer = tracer
	}
}

// WithPrompt sets the text written before each command is read. An empty
// prompt disables it, which is what scripted input usually wants.
func WithPrompt(prompt string) ShellOption {
	return func(s *Shell) {
		s.prompt = prompt
	}
}

func NewShell(useCase UseCase, in io.Reader, out io.Writer, opts ...ShellOption) *Shell {
	s := &Shell{
		useCase: useCase,
		scanner: bufio.NewScanner(in),
		out:     out,
		tracer:  noop.NewTracerProvider().Tracer("parking-lot-shell"),
		prompt:  DefaultPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes commands until exit, end of input or ctx is done. Only a
// failure to read input is returned as an error.
func (s *Shell) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	defer span.AddEvent("shell_ended")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				span.RecordError(err)
				return fmt.Errorf("read command: %w", err)
			}
			return nil
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		// Create a new span for each command
		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		exit := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if exit {
			return nil
		}
	}
}

func (s *Shell) processCommand(ctx context.Context, input string) (exit bool) {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	command := strings.ToLower(parts[0])
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create_parking_lot":
		s.handleCreateParkingLot(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "leave":
		s.handleLeave(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "type_of_vehicles":
		s.handleTypeOfVehicles(ctx, parts)
	case "registration_numbers_for_vehicles_with_odd_plate":
		s.handlePlates(ctx, PlateOdd)
	case "registration_numbers_for_vehicles_with_even_plate":
		s.handlePlates(ctx, PlateEven)
	case "registration_numbers_for_vehicles_with_colour":
		s.handleRegistrationNumbersForColour(ctx, parts)
	case "slot_numbers_for_vehicles_with_colour":
		s.handleSlotNumbersForColour(ctx, parts)
	case "slot_number_for_registration_number":
		s.handleSlotNumberForRegistrationNumber(ctx, parts)
	case "exit":
		span.AddEvent("exit_requested")
		return true
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.println("Invalid command. Please try again.")
	}
	return false
}

func (s *Shell) usage(ctx context.Context, text string) {
	trace.SpanFromContext(ctx).AddEvent("invalid_arguments")
	s.println("Invalid command. Usage: " + text)
}

func (s *Shell) handleCreateParkingLot(ctx context.Context, parts []string) {
	const usage = "create_parking_lot <total_slots>"
	if len(parts) != 2 {
		s.usage(ctx, usage)
		return
	}

	capacity, err := strconv.Atoi(parts[1])
	if err != nil {
		s.usage(ctx, usage)
		return
	}

	if err := s.useCase.CreateParkingLot(ctx, capacity); err != nil {
		s.usage(ctx, usage)
		return
	}

	s.printf("Created a parking lot with %d slots\n", capacity)
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if len(parts) != 4 {
		s.usage(ctx, "park <registration_number> <color> <vehicle_type>")
		return
	}

	slotNumber, err := s.useCase.Park(ctx, parts[1], parts[2], parts[3])
	if errors.Is(err, ErrLotFull) {
		s.println("Sorry, parking lot is full")
		return
	}
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Allocated slot number: %d\n", slotNumber)
}

func (s *Shell) handleLeave(ctx context.Context, parts []string) {
	const usage = "leave <slot_number>"
	if len(parts) != 2 {
		s.usage(ctx, usage)
		return
	}

	slotNumber, err := strconv.Atoi(parts[1])
	if err != nil {
		s.usage(ctx, usage)
		return
	}

	err = s.useCase.Leave(ctx, slotNumber)
	if errors.Is(err, ErrSlotNotFound) {
		s.printf("Slot number %d not found\n", slotNumber)
		return
	}
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}

	s.printf("Slot number %d is free\n", slotNumber)
}

func (s *Shell) handleStatus(ctx context.Context) {
	report := s.useCase.Report(ctx)

	s.printf("Occupied Slots: %d\n", report.Occupied)
	s.printf("Available Slots: %d\n", report.Available)
	s.println("Vehicle Count by Type:")
	for _, group := range report.VehicleTypes {
		s.printf("%s: %d\n", group.Key, group.Count)
	}
	s.println("Odd Plate Numbers: " + strings.Join(report.OddPlates, ", "))
	s.println("Even Plate Numbers: " + strings.Join(report.EvenPlates, ", "))
	s.println("Vehicle Count by Color:")
	for _, group := range report.Colors {
		s.printf("%s: %d\n", group.Key, group.Count)
	}
}

func (s *Shell) handleTypeOfVehicles(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.usage(ctx, "type_of_vehicles <vehicle_type>")
		return
	}

	s.println(s.useCase.Report(ctx).TypeCount(parts[1]))
}

func (s *Shell) handlePlates(ctx context.Context, parity PlateParity) {
	s.println(strings.Join(s.useCase.Report(ctx).Plates(parity), ", "))
}

func (s *Shell) handleRegistrationNumbersForColour(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.usage(ctx, "registration_numbers_for_vehicles_with_colour <color>")
		return
	}

	s.println(strings.Join(s.useCase.RegistrationsByColor(ctx, parts[1]), ", "))
}

func (s *Shell) handleSlotNumbersForColour(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.usage(ctx, "slot_numbers_for_vehicles_with_colour <color>")
		return
	}

	numbers := s.useCase.SlotsByColor(ctx, parts[1])
	formatted := make([]string, len(numbers))
	for i, n := range numbers {
		formatted[i] = strconv.Itoa(n)
	}
	s.println(strings.Join(formatted, ", "))
}

func (s *Shell) handleSlotNumberForRegistrationNumber(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.usage(ctx, "slot_number_for_registration_number <registration_number>")
		return
	}

	slotNumber, err := s.useCase.SlotForRegistration(ctx, parts[1])
	if err != nil {
		s.println(-1)
		return
	}

	s.println(slotNumber)
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
