package vm

import (
	"coalos/defs"
	"coalos/mem"
	"coalos/util"
)

// copyUser is the page-at-a-time engine behind K2user/User2k/Userreadn
// (spec §4.6): validate with access_ok, temp-map the destination page, and
// copy. A page fault inside the temp-mapped access cannot happen here — the
// page is guaranteed present because Grow/MapAnon/Mmap populate eagerly (no
// demand paging, Non-goals §1) — so, unlike the teacher's fixup-on-fault
// assembly routine, this copy never needs an exception handler.
func (a *AS) copyUser(buf []uint8, uva mem.Va_t, toUser bool) defs.Err_t {
	a.Lock_pmap()
	defer a.Unlock_pmap()

	cnt := 0
	for cnt < len(buf) {
		va := uva + mem.Va_t(cnt)
		if !a.accessOK(va, 1, toUser) {
			return -defs.EFAULT
		}
		pa, _, ok := a.engine.Translate(a.PD, mem.PageRounddown(va))
		if !ok {
			return -defs.EFAULT
		}
		voff := int(va & mem.PGOFFSET)
		kva := a.arena.Map(pa, 0)
		page := (*[mem.PGSIZE]byte)(ptrAtVM(kva))

		n := mem.PGSIZE - voff
		if rem := len(buf) - cnt; rem < n {
			n = rem
		}
		if toUser {
			copy(page[voff:voff+n], buf[cnt:cnt+n])
		} else {
			copy(buf[cnt:cnt+n], page[voff:voff+n])
		}
		a.arena.Unmap(kva)
		cnt += n
	}
	return 0
}

// K2user copies src into user space starting at uva (spec §4.6 copy_to_user).
func (a *AS) K2user(src []uint8, uva mem.Va_t) defs.Err_t {
	return a.copyUser(src, uva, true)
}

// User2k copies len(dst) bytes from user space starting at uva into dst
// (spec §4.6 copy_from_user).
func (a *AS) User2k(dst []uint8, uva mem.Va_t) defs.Err_t {
	return a.copyUser(dst, uva, false)
}

// Userreadn/Userwriten read or write an n-byte (n<=8) little-endian integer
// at a user address, matching the teacher's helper shape.
func (a *AS) Userreadn(uva mem.Va_t, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("vm: n too large")
	}
	buf := make([]uint8, n)
	if err := a.User2k(buf, uva); err != 0 {
		return 0, err
	}
	return util.Readn(buf, n, 0), 0
}

func (a *AS) Userwriten(uva mem.Va_t, n, val int) defs.Err_t {
	if n > 8 {
		panic("vm: n too large")
	}
	buf := make([]uint8, n)
	util.Writen(buf, n, 0, val)
	return a.K2user(buf, uva)
}
