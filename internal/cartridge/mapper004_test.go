package cartridge

import "testing"

func newMMC3Cartridge() *Cartridge {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x2000*8), // 8 x 8KB banks
		chrROM: make([]uint8, 0x0400*16),
	}
	for i := range cart.prgROM {
		cart.prgROM[i] = uint8(i / 0x2000)
	}
	for i := range cart.chrROM {
		cart.chrROM[i] = uint8(i / 0x0400)
	}
	return cart
}

func TestMapper004_LastBankFixedAt0xE000(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	if v := mapper.ReadPRG(0xE000); v != uint8(mapper.prgBanks-1) {
		t.Errorf("expected last bank fixed at 0xE000, got %d", v)
	}
}

func TestMapper004_BankSelectDataPair(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0x8000, 6) // select register 6 (PRG bank at 0x8000 when prgMode=0)
	mapper.WritePRG(0x8001, 3) // data: bank 3

	if mapper.bankReg[6] != 3 {
		t.Errorf("expected bankReg[6]=3, got %d", mapper.bankReg[6])
	}
	if v := mapper.ReadPRG(0x8000); v != 3 {
		t.Errorf("expected PRG bank 3 switched in at 0x8000, got %d", v)
	}
}

func TestMapper004_PRGModeSwapsWindows(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0x8000, 6)
	mapper.WritePRG(0x8001, 2) // bankReg[6] = 2

	// prgMode 0: bankReg[6] at 0x8000, second-last fixed at 0xC000.
	if v := mapper.ReadPRG(0x8000); v != 2 {
		t.Errorf("mode 0: expected bank 2 at 0x8000, got %d", v)
	}
	if v := mapper.ReadPRG(0xC000); v != uint8(mapper.prgBanks-2) {
		t.Errorf("mode 0: expected second-last bank at 0xC000, got %d", v)
	}

	// Set PRG mode bit (bit 6 of bank select).
	mapper.WritePRG(0x8000, 0x40|6)
	mapper.WritePRG(0x8001, 2)

	if v := mapper.ReadPRG(0xC000); v != 2 {
		t.Errorf("mode 1: expected bank 2 swapped to 0xC000, got %d", v)
	}
	if v := mapper.ReadPRG(0x8000); v != uint8(mapper.prgBanks-2) {
		t.Errorf("mode 1: expected second-last bank fixed at 0x8000, got %d", v)
	}
}

func TestMapper004_MirroringWrite(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0xA000, 0x01)
	if mapper.Mirroring() != MirrorHorizontal {
		t.Errorf("expected horizontal mirroring for odd value, got %v", mapper.Mirroring())
	}

	mapper.WritePRG(0xA000, 0x00)
	if mapper.Mirroring() != MirrorVertical {
		t.Errorf("expected vertical mirroring for even value, got %v", mapper.Mirroring())
	}
}

func TestMapper004_FourScreenIgnoresMirroringWrite(t *testing.T) {
	cart := newMMC3Cartridge()
	cart.fourScreen = true
	mapper := NewMapper004(cart)

	mapper.WritePRG(0xA000, 0x01)
	if mapper.Mirroring() != MirrorFourScreen {
		t.Errorf("expected four-screen mirroring to stick, got %v", mapper.Mirroring())
	}
}

func TestMapper004_IRQCounterReloadAndFire(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0xC000, 2) // IRQ latch = 2
	mapper.WritePRG(0xC001, 0) // request reload
	mapper.WritePRG(0xE001, 0) // enable IRQ

	mapper.Clock() // counter was 0 -> reloads to latch (2), does not fire this edge
	if mapper.irqPending {
		t.Errorf("did not expect IRQ pending immediately after reload")
	}

	mapper.Clock() // counter 2 -> 1
	if mapper.irqPending {
		t.Errorf("did not expect IRQ pending at counter=1")
	}

	mapper.Clock() // counter 1 -> 0, stages the IRQ but does not yet assert it
	if mapper.IRQPending() {
		t.Errorf("did not expect IRQ pending before the CPU-cycle delay elapses")
	}

	mapper.TickIRQDelay(uint64(mmc3IRQDelay))
	if !mapper.IRQPending() {
		t.Errorf("expected IRQ pending once the staged delay elapses")
	}
}

func TestMapper004_IRQDelay_NotVisibleUntilElapsed(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0xC000, 0) // IRQ latch = 0, so the very next Clock() hits zero
	mapper.WritePRG(0xC001, 0) // request reload
	mapper.WritePRG(0xE001, 0) // enable IRQ

	mapper.Clock() // counter reloads to 0 and immediately re-triggers -> stages delay

	mapper.TickIRQDelay(uint64(mmc3IRQDelay) - 1)
	if mapper.IRQPending() {
		t.Errorf("did not expect IRQ pending one cycle before the delay elapses")
	}

	mapper.TickIRQDelay(1)
	if !mapper.IRQPending() {
		t.Errorf("expected IRQ pending once the full delay has elapsed")
	}
}

func TestMapper004_IRQDisableCancelsStagedDelay(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0xC000, 0)
	mapper.WritePRG(0xC001, 0)
	mapper.WritePRG(0xE001, 0) // enable
	mapper.Clock()             // stages the delay

	mapper.WritePRG(0xE000, 0) // disable-and-acknowledge

	mapper.TickIRQDelay(uint64(mmc3IRQDelay))
	if mapper.IRQPending() {
		t.Errorf("expected disable-and-acknowledge to cancel a staged IRQ delay")
	}
}

func TestMapper004_IRQDisableAcknowledges(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)
	mapper.irqPending = true
	mapper.irqEnable = true

	mapper.WritePRG(0xE000, 0) // disable: also acknowledges pending IRQ

	if mapper.IRQPending() {
		t.Errorf("expected $E000 write to acknowledge pending IRQ")
	}
	if mapper.irqEnable {
		t.Errorf("expected $E000 write to disable IRQ generation")
	}
}

func TestMapper004_SnapshotRestore(t *testing.T) {
	cart := newMMC3Cartridge()
	mapper := NewMapper004(cart)

	mapper.WritePRG(0x8000, 6)
	mapper.WritePRG(0x8001, 5)
	mapper.WritePRG(0xC000, 7)
	mapper.WritePRG(0xE001, 0)

	snap := mapper.Snapshot()
	restored := NewMapper004(cart)
	restored.Restore(snap)

	if restored.bankReg != mapper.bankReg {
		t.Errorf("expected bank registers to match after restore")
	}
	if restored.irqLatch != mapper.irqLatch {
		t.Errorf("expected irqLatch %d, got %d", mapper.irqLatch, restored.irqLatch)
	}
	if restored.irqEnable != mapper.irqEnable {
		t.Errorf("expected irqEnable %t, got %t", mapper.irqEnable, restored.irqEnable)
	}
}
